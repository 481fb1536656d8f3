package preview

import (
	"fmt"
	"html"
	"log"
	"net/http"
	"strings"

	"github.com/livepreview/swing/internal/security"
)

// cdnBase is where bare library names resolve to. An entry that is already a
// URL is used as-is after validation.
const cdnBase = "https://unpkg.com/"

// libraryURL resolves a manifest library entry to a loadable URL. Entries
// with a scheme are validated against internal-network targets; bare names
// are treated as package names on the CDN.
func libraryURL(entry string) (string, bool) {
	if strings.HasPrefix(entry, "http://") || strings.HasPrefix(entry, "https://") {
		if err := security.ValidateExternalURL(entry); err != nil {
			log.Printf("[Preview] Rejected library URL %q: %v", entry, err)
			return "", false
		}
		return entry, true
	}
	return cdnBase + entry, true
}

// servePage renders the composed preview document: manifest styles and
// scripts in declaration order, then the markup, compiled CSS, and transpiled
// script.
func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	manifest := s.manifest
	htmlLayer := s.html
	css := s.css
	js := s.js
	scriptType := s.scriptType
	s.mu.RUnlock()

	var head strings.Builder
	for _, entry := range manifest.Styles {
		if u, ok := libraryURL(entry); ok {
			fmt.Fprintf(&head, "    <link rel=\"stylesheet\" href=%q>\n", u)
		}
	}
	for _, entry := range manifest.Scripts {
		if u, ok := libraryURL(entry); ok {
			fmt.Fprintf(&head, "    <script src=%q></script>\n", u)
		}
	}

	scriptAttr := ""
	if scriptType == "module" {
		scriptAttr = ` type="module"`
	}

	consolePanel := ""
	if s.showConsole(manifest.ShowConsole) {
		consolePanel = consoleMarkup
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate,
		head.String(),
		css,
		htmlLayer,
		consolePanel,
		scriptAttr,
		js,
		html.EscapeString(wsURL(r)))
}

// showConsole resolves the console toggle: a manifest value wins over
// configuration.
func (s *Server) showConsole(override *bool) bool {
	if override != nil {
		return *override
	}
	return s.cfg.Playgrounds.ShowConsole
}

func wsURL(r *http.Request) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return scheme + "://" + r.Host + "/ws"
}

const consoleMarkup = `    <div id="swing-console">
        <div class="swing-console-header">Console</div>
        <pre id="swing-console-output"></pre>
    </div>
`

// pageTemplate is the composed preview shell. The client script applies
// layer patches in place and reloads on rebuild.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Playground</title>
%s    <style id="swing-style">
%s
    </style>
    <style>
        #swing-console {
            position: fixed;
            bottom: 0;
            left: 0;
            right: 0;
            max-height: 30vh;
            overflow-y: auto;
            background: #1e1e1e;
            color: #d4d4d4;
            font-family: Menlo, Consolas, monospace;
            font-size: 12px;
            border-top: 1px solid #444;
        }
        .swing-console-header {
            padding: 4px 8px;
            background: #2d2d2d;
            font-weight: 600;
        }
        #swing-console-output {
            margin: 0;
            padding: 4px 8px;
            white-space: pre-wrap;
        }
    </style>
</head>
<body>
    <div id="swing-root">
%s
    </div>
%s    <script%s id="swing-script">
%s
    </script>
    <script>
        (function() {
            var consoleOut = document.getElementById('swing-console-output');
            if (consoleOut) {
                ['log', 'warn', 'error'].forEach(function(level) {
                    var orig = console[level];
                    console[level] = function() {
                        var line = Array.prototype.slice.call(arguments).map(String).join(' ');
                        consoleOut.textContent += '[' + level + '] ' + line + '\n';
                        orig.apply(console, arguments);
                    };
                });
            }

            var pending = false;
            var ws = new WebSocket('%s');
            ws.onmessage = function(ev) {
                var msg = JSON.parse(ev.data);
                if (msg.action === 'rebuild') {
                    location.reload();
                    return;
                }
                if (msg.action !== 'patch') return;
                if (!msg.autorun) {
                    pending = true;
                    return;
                }
                switch (msg.layer) {
                case 'html':
                    document.getElementById('swing-root').innerHTML = msg.content;
                    break;
                case 'css':
                    document.getElementById('swing-style').textContent = msg.content;
                    break;
                case 'javascript':
                case 'manifest':
                    // Script and library changes need a full re-execute.
                    location.reload();
                    break;
                }
            };
            ws.onclose = function() {
                console.log('preview connection closed');
            };
        })();
    </script>
</body>
</html>
`
