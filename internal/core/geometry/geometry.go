// Package geometry 计算弹窗在页面上的锚点位置。
// 所有函数均为纯函数：不会失败，结果可能为负数。
package geometry

const (
	// offsetX 指针右侧的水平间距
	offsetX = 30
	// flipX 向左翻转时额外让出的距离
	flipX = 60
	// offsetY 指针下方的垂直间距
	offsetY = 10
	// flipY 向上翻转时额外让出的距离
	flipY = 15
)

// Point 坐标点（像素）
type Point struct {
	X float64
	Y float64
}

// Size 弹窗尺寸（像素）
type Size struct {
	Width  float64
	Height float64
}

// Viewport 视口尺寸与滚动偏移
type Viewport struct {
	Width   float64
	Height  float64
	ScrollX float64
	ScrollY float64
}

// ComputeX 计算弹窗 left 坐标（文档坐标）
// 候选位置 = clientX + 30；若右侧越界则翻转到 候选 - width - 60；最后加上水平滚动距离。
func ComputeX(clientX, popupWidth, viewportWidth, scrollX float64) float64 {
	x := clientX + offsetX
	if x+popupWidth > viewportWidth {
		x = x - popupWidth - flipX
	}
	return x + scrollX
}

// ComputeY 计算弹窗 top 坐标（文档坐标）
// 候选位置 = clientY + 10；若底部越界则翻转到 候选 - height - 15；最后加上垂直滚动距离。
func ComputeY(clientY, popupHeight, viewportHeight, scrollY float64) float64 {
	y := clientY + offsetY
	if y+popupHeight > viewportHeight {
		y = y - popupHeight - flipY
	}
	return y + scrollY
}

// Place 根据指针位置、弹窗实测尺寸与视口计算弹窗位置
func Place(client Point, size Size, vp Viewport) Point {
	return Point{
		X: ComputeX(client.X, size.Width, vp.Width, vp.ScrollX),
		Y: ComputeY(client.Y, size.Height, vp.Height, vp.ScrollY),
	}
}
