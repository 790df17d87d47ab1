// Package web3 houses blockchain connectivity for agent treasuries: RPC
// clients, balance queries, native transfers between agent wallets, and
// multi-chain configuration helpers. Agents hold real wallets, so every
// economic fact an agent reasons about (its balance, a tip it sends) flows
// through this package.
package web3
