package probe

import (
	"strings"

	"github.com/nao1215/tunguard/internal/model"
)

// BuildURL returns the URL probed for a tunnel link. A link that already
// carries an http:// or https:// scheme is used as is; otherwise the
// scheme is https for https tunnels and http for everything else.
func BuildURL(link string, proxyType model.ProxyType) string {
	link = strings.TrimSpace(link)

	lower := strings.ToLower(link)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return link
	}

	scheme := "http"
	if proxyType.Normalize() == model.ProxyTypeHTTPS {
		scheme = "https"
	}
	return scheme + "://" + link
}
