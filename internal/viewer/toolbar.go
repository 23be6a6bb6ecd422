package viewer

import (
	"net/url"
	"strings"

	"docflow/internal/model"
)

var baseToolbar = []string{
	"sidebar-thumbnails",
	"sidebar-bookmarks",
	"pager",
	"zoom-out",
	"zoom-in",
	"print",
}

var reviewerToolbar = []string{
	"text-highlighter",
	"stamp",
	"ink",
	"text",
	"note",
	"ink-eraser",
	"spacer",
}

// ToolbarItems returns the widget toolbar for role. Annotation tools are
// only offered to reviewers.
func ToolbarItems(role model.Role) []string {
	out := append([]string(nil), baseToolbar...)
	if role == model.RoleReviewer {
		out = append(out, reviewerToolbar...)
	}
	return out
}

// DocumentURL is where the widget loads doc from: its fileUrl when the
// store supplied one, else the store's content endpoint.
func DocumentURL(baseURL string, doc model.Document) string {
	if doc.FileURL != "" {
		return doc.FileURL
	}
	return strings.TrimRight(baseURL, "/") + "/api/v1/document/" + url.PathEscape(doc.ID) + "/content"
}
