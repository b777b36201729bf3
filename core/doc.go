// Package core holds the bridge ledger domain: amounts and addresses, the
// component contracts (accounts, supply, owner slot, bridge registry), the
// in-memory store and the token engine Service. Storage and transport
// adapters depend on this package; core never imports them.
package core
