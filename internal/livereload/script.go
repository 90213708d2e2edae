package livereload

import "net/http"

// Script reconnects on error and reloads the page once the hash changes.
const Script = `(() => {
  if (window.__BUILDWATCH_LR__) return;
  window.__BUILDWATCH_LR__ = true;
  function connect() {
    const es = new EventSource('/livereload');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.hash; return; }
        if (p.hash && p.hash !== current) { console.log('[buildwatch] change detected, reloading'); location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { console.warn('[buildwatch] livereload error - retrying'); es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

// ScriptHandler serves Script as JavaScript.
func ScriptHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write([]byte(Script))
	})
}
