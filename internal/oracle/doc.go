// Package oracle converts on-chain wei balances into the USD figures agents
// reason about. Spot prices come from a chain of public HTTP sources tried
// in order, with a short-lived cache and a hardcoded floor so a dead price
// feed can never kill an agent.
package oracle
