package chain

import "strings"

// AddressURL links to addr on the network's block explorer, or "" when the
// network has no explorer.
func (n *Network) AddressURL(addr string) string {
	return n.explorerURL("address", addr)
}

// TxURL links to a transaction on the network's block explorer.
func (n *Network) TxURL(hash string) string {
	return n.explorerURL("tx", hash)
}

func (n *Network) explorerURL(kind, id string) string {
	if n == nil || n.Explorer == "" || id == "" {
		return ""
	}
	return strings.TrimRight(n.Explorer, "/") + "/" + kind + "/" + id
}
