package browser

import (
	"fmt"
	"net/url"
	"strings"

	errs "xqtimeline/pkg/errors"
)

// Proxy is an upstream proxy split into the address handed to Chrome and the
// credentials used to answer its auth challenges.
type Proxy struct {
	// Server is scheme://host[:port]
	Server   string
	Username string
	Password string
}

// HasAuth reports whether the proxy carries credentials
func (p *Proxy) HasAuth() bool {
	return p != nil && p.Username != ""
}

// String returns the proxy address with the password masked
func (p *Proxy) String() string {
	if p == nil {
		return ""
	}
	if !p.HasAuth() {
		return p.Server
	}
	scheme, host, _ := strings.Cut(p.Server, "://")
	return fmt.Sprintf("%s://%s:***@%s", scheme, p.Username, host)
}

// ParseProxy splits scheme://[user[:pass]@]host[:port]. A missing scheme
// defaults to http.
func ParseProxy(raw string) (*Proxy, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "parse proxy", "proxy url is empty")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, errs.Wrap(err, errs.ErrorTypeConfig, "parse proxy")
	}
	if u.Host == "" || u.Hostname() == "" {
		return nil, errs.New(errs.ErrorTypeConfig, "parse proxy", "proxy url has no host")
	}

	p := &Proxy{Server: u.Scheme + "://" + u.Host}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	return p, nil
}
