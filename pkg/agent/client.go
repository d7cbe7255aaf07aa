package agent

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"lxmf-chat/pkg/backend"
	"lxmf-chat/pkg/config"
)

// NewBackendClient builds the chat backend client. CAFile pins the server
// CA and CertFile/KeyFile enable mutual TLS.
func NewBackendClient(c config.BackendConfig) (*backend.Client, error) {
	hc, err := buildHTTPClient(c)
	if err != nil {
		return nil, err
	}
	cl := backend.New(c.URL, hc)
	cl.Token = c.Token
	return cl, nil
}

func buildHTTPClient(c config.BackendConfig) (*http.Client, error) {
	tlsConfig := &tls.Config{InsecureSkipVerify: c.Insecure, MinVersion: tls.VersionTLS12} //nolint:gosec
	if c.CAFile != "" {
		caData, err := os.ReadFile(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caData) {
			return nil, fmt.Errorf("no certificates in %s", c.CAFile)
		}
		tlsConfig.RootCAs = pool
	}
	if c.CertFile != "" && c.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Timeout: c.Timeout, Transport: transport}, nil
}
