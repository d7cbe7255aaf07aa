// Package consul holds the Consul KV integrations. Everything here needs the
// consul build tag.
package consul
