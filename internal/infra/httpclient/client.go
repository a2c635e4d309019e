package httpclient

import (
	"net/http"
	"time"
)

// New builds the outbound client used for gateway calls. Asaas is the only
// remote host, so a handful of kept-alive connections is plenty.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        8,
			MaxIdleConnsPerHost: 4,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
