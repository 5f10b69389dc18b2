package pwdom

// BindingName 页面向 Go 投递事件的回调名称
const BindingName = "__priceOverlayEmit"

// NodeAttr 元素寻址属性
const NodeAttr = "data-overlay-node"

// initScript 页面脚本
// 在捕获阶段监听指针与表单事件，按 NodeAttr 为事件目标分配稳定 ID，经 BindingName 投递 JSON 事件。
// Alt+mouseup 触发选区换算。脚本加载完成后投递一次 attached 事件。
const initScript = `(() => {
  if (window.__priceOverlayInstalled) return;
  window.__priceOverlayInstalled = true;

  let seq = 0;
  const salt = Math.random().toString(36).slice(2, 8);
  const nodeId = (el) => {
    if (!el || el.nodeType !== 1) return '';
    let id = el.getAttribute('data-overlay-node');
    if (!id) {
      id = salt + '-' + (++seq);
      el.setAttribute('data-overlay-node', id);
    }
    return id;
  };
  window.__priceOverlayNodeId = nodeId;

  const emit = (ev) => {
    try { window.__priceOverlayEmit(JSON.stringify(ev)); } catch (e) {}
  };
  window.__priceOverlayEmitEvent = emit;

  document.addEventListener('mouseover', (e) => {
    emit({kind: 'pointer_enter', node: nodeId(e.target), x: e.clientX, y: e.clientY});
  }, true);
  document.addEventListener('mouseout', (e) => {
    emit({kind: 'pointer_leave', node: nodeId(e.target), x: e.clientX, y: e.clientY});
  }, true);

  let lastMove = 0;
  document.addEventListener('mousemove', (e) => {
    const now = Date.now();
    if (now - lastMove < 16) return;
    lastMove = now;
    emit({kind: 'pointer_move', x: e.clientX, y: e.clientY});
  }, true);

  document.addEventListener('change', (e) => {
    emit({kind: 'value_changed', node: nodeId(e.target)});
  }, true);
  document.addEventListener('input', (e) => {
    emit({kind: 'value_changed', node: nodeId(e.target)});
  }, true);

  document.addEventListener('mouseup', (e) => {
    if (e.altKey) emit({kind: 'selection', x: e.clientX, y: e.clientY});
  }, true);

  emit({kind: 'attached', url: location.href});
})();`

const queryAllScript = `(selector) => Array.from(document.querySelectorAll(selector)).map((el) => window.__priceOverlayNodeId(el))`

const nodeScript = `([id, op, arg]) => {
  const el = document.querySelector('[data-overlay-node="' + id + '"]');
  if (!el) return null;
  switch (op) {
    case 'has_class': return el.classList.contains(arg);
    case 'add_class': el.classList.add(arg); return true;
    case 'text': return el.innerText !== undefined ? el.innerText : el.textContent;
    case 'value': return typeof el.value === 'string' ? el.value : '';
    case 'hovered': return el.matches(':hover');
  }
  return null;
}`

const viewportScript = `() => ({w: window.innerWidth, h: window.innerHeight, sx: window.scrollX, sy: window.scrollY})`

const selectionScript = `() => {
  const sel = window.getSelection();
  if (!sel || sel.rangeCount === 0) return null;
  const text = sel.toString();
  if (!text) return null;
  const r = sel.getRangeAt(0).getBoundingClientRect();
  return {text: text, x: r.left, y: r.top};
}`

const newPopupScript = `([id, content]) => {
  const div = document.createElement('div');
  div.id = id;
  div.style.cssText = 'position:absolute;visibility:hidden;z-index:2147483647;' +
    'padding:8px 22px;border-radius:4px;font:13px/18px sans-serif;white-space:nowrap;' +
    (content.warning ? 'background:#fff3cd;color:#856404;border:1px solid #ffeeba;' : 'background:#fff;color:#222;border:1px solid #ccc;');
  const line = (text, bold) => {
    const p = document.createElement('div');
    p.textContent = text;
    if (bold) p.style.fontWeight = 'bold';
    div.appendChild(p);
  };
  if (content.title) line(content.title, true);
  if (content.message) line(content.message, false);
  for (const l of content.lines || []) line(l.code + ': ' + (l.symbol ? l.symbol + ' ' : '') + l.amount, false);
  div.addEventListener('mouseleave', () => window.__priceOverlayEmitEvent({kind: 'popup_leave', popup: id}));
  document.body.appendChild(div);
  return true;
}`

const popupScript = `([id, op, x, y]) => {
  const el = document.getElementById(id);
  if (!el) return null;
  switch (op) {
    case 'size': { const r = el.getBoundingClientRect(); return {w: r.width, h: r.height}; }
    case 'move': el.style.left = x + 'px'; el.style.top = y + 'px'; return true;
    case 'show': el.style.visibility = 'visible'; return true;
    case 'remove': el.remove(); return true;
    case 'hovered': return el.matches(':hover');
  }
  return null;
}`
