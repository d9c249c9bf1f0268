// pkg/webview/script.go
package webview

import (
	"fmt"

	json "github.com/json-iterator/go"
)

// Page-scoped flag names the observer script sets and the poll loop reads.
const (
	successFlag   = "window.__crosspost_post_success"
	permalinkFlag = "window.__crosspost_post_url"
)

// pollExpr is evaluated on every poll tick. It reads the flags left by the
// observer script and normalizes them into a small JSON object.
var pollExpr = fmt.Sprintf(
	"({success: !!%s, url: %s || null})", successFlag, permalinkFlag)

// pollFlags mirrors pollExpr's result shape.
type pollFlags struct {
	Success bool    `json:"success"`
	URL     *string `json:"url"`
}

// jsString safely embeds an arbitrary Go string as a JS string literal.
func jsString(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		// Marshalling a string cannot fail; keep the page side valid anyway.
		return `""`
	}
	return string(b)
}

// injectTextScript fills the composer's text input and fires the event
// sequence client-side frameworks expect, so the host page treats the change
// as a real user edit rather than a silent DOM write. A missing element is a
// silent no-op: selector drift degrades to "ask the human".
func injectTextScript(selector, text string) string {
	return fmt.Sprintf(`
(function() {
    const el = document.querySelector(%s);
    if (!el) { return false; }
    el.focus();
    if (el.tagName === 'TEXTAREA' || el.tagName === 'INPUT') {
        el.value = %s;
        el.dispatchEvent(new Event('input', { bubbles: true }));
        el.dispatchEvent(new Event('change', { bubbles: true }));
    } else {
        el.textContent = %s;
        el.dispatchEvent(new Event('input', { bubbles: true }));
    }
    return true;
})()`, jsString(selector), jsString(text), jsString(text))
}

// observerScript installs a MutationObserver that watches for the platform's
// success element and records the outcome in page-scoped flags. It
// disconnects after the first hit; persistence is the poll loop's job.
func observerScript(successSelector, permalinkSelector string) string {
	permalink := "null"
	if permalinkSelector != "" {
		permalink = jsString(permalinkSelector)
	}
	return fmt.Sprintf(`
(function() {
    %s = false;
    %s = null;
    const observer = new MutationObserver(function() {
        const successEl = document.querySelector(%s);
        if (!successEl) { return; }
        %s = true;
        const pSel = %s;
        if (pSel) {
            const linkEl = document.querySelector(pSel);
            %s = linkEl && linkEl.href ? linkEl.href : null;
        }
        observer.disconnect();
    });
    observer.observe(document.body, { childList: true, subtree: true });
})()`, successFlag, permalinkFlag, jsString(successSelector), successFlag, permalink, permalinkFlag)
}
