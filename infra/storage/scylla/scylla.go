// Package scylla persists chat history. Messages land in a per-conversation
// table plus one inbox row per participant, written by an asynchronous
// batching writer.
package scylla

import (
	"fmt"
	"time"

	"github.com/gocql/gocql"

	"github.com/termchat/termchat/config"
)

// NewSession connects to the cluster with quorum consistency.
func NewSession(cfg config.ScyllaConfig) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.Hosts...)
	cluster.Keyspace = cfg.Keyspace
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.ConnectTimeout = 5 * time.Second

	sess, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("scylla: connect %v: %w", cfg.Hosts, err)
	}
	return sess, nil
}
