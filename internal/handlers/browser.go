package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"reclist/pkg/types"
)

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <title>Recordings - {{.Directory}}</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            margin: 0;
            padding: 20px;
            background-color: #f5f5f7;
        }
        .container {
            max-width: 1200px;
            margin: 0 auto;
            background: white;
            border-radius: 12px;
            box-shadow: 0 4px 6px rgba(0, 0, 0, 0.1);
            overflow: hidden;
        }
        .header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 20px 30px;
        }
        .header h1 {
            margin: 0;
            font-size: 24px;
            font-weight: 600;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        th, td {
            padding: 12px 30px;
            border-bottom: 1px solid #f0f0f0;
            text-align: left;
        }
        td.size {
            color: #666;
            text-align: right;
        }
        .empty-state {
            text-align: center;
            padding: 60px 30px;
            color: #666;
        }
        .footer {
            background: #f8f9fa;
            padding: 20px 30px;
            text-align: center;
            color: #666;
            font-size: 14px;
        }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>{{.Directory}}</h1>
        </div>

        {{if .Recordings}}
        <table>
            <tr><th>Name</th><th>Path</th><th>Modified</th><th>Size</th></tr>
            {{range .Recordings}}
            <tr>
                <td>{{.Name}}</td>
                <td><code>{{.Path}}</code></td>
                <td>{{formatTime .Modified.Time}}</td>
                <td class="size">{{formatSize .Size}}</td>
            </tr>
            {{end}}
        </table>
        {{else}}
        <div class="empty-state">
            <h3>No recordings</h3>
            <p>This directory contains no session recordings.</p>
        </div>
        {{end}}

        <div class="footer">
            {{.Count}} recording(s)
        </div>
    </div>
</body>
</html>`

// BrowserHandler renders a listing as a read-only HTML page
type BrowserHandler struct {
	template *template.Template
}

// NewBrowserHandler creates a new browser handler
func NewBrowserHandler() *BrowserHandler {
	tmpl := template.Must(template.New("listing").Funcs(template.FuncMap{
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"formatSize": formatSize,
	}).Parse(htmlTemplate))
	return &BrowserHandler{
		template: tmpl,
	}
}

// Render writes listing as HTML
func (h *BrowserHandler) Render(w http.ResponseWriter, listing types.Listing) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.template.Execute(w, listing); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

// formatSize formats file size for display
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB", "EB"}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), units[exp])
}
