package model

// Identity is a local LXMF identity the backend can operate as.
type Identity struct {
	Name         string `json:"name"`
	IdentityHash string `json:"identity_hash"`
	DeliveryHash string `json:"delivery_hash,omitempty"`
	Address      string `json:"address,omitempty"`
	Path         string `json:"path,omitempty"`
}

// Delivery returns the delivery hash, defaulting to the identity hash.
func (i Identity) Delivery() string {
	if i.DeliveryHash != "" {
		return i.DeliveryHash
	}
	return i.IdentityHash
}
