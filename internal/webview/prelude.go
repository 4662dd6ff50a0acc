package webview

// prelude installs the window event target the editor bundle and jobs expect
const prelude = `(function (g) {
  var listeners = {};

  function Event(type, init) {
    this.type = String(type);
    this.cancelable = !!(init && init.cancelable);
    this.defaultPrevented = false;
  }
  Event.prototype.preventDefault = function () {
    if (this.cancelable) this.defaultPrevented = true;
  };
  g.Event = Event;

  g.addEventListener = function (type, fn) {
    if (typeof fn !== "function") return;
    (listeners[type] = listeners[type] || []).push(fn);
  };

  g.removeEventListener = function (type, fn) {
    var l = listeners[type];
    if (!l) return;
    var i = l.indexOf(fn);
    if (i >= 0) l.splice(i, 1);
  };

  g.dispatchEvent = function (event) {
    var l = (listeners[event.type] || []).slice();
    for (var i = 0; i < l.length; i++) {
      try {
        l[i].call(g, event);
      } catch (e) {
        if (typeof logger !== "undefined") logger("error", "listener: ", e.message);
      }
    }
    return !event.defaultPrevented;
  };
})(globalThis);
`
