// Package workflow models the workflow studio: definitions made of nodes with
// depends_on edges, YAML loading, topological ordering, and the simulated
// run that animates nodes as plan steps.
package workflow
