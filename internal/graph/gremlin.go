package graph

import (
	"context"
	"fmt"

	gremlin "github.com/apache/tinkerpop/gremlin-go/v3/driver"
	"github.com/go-git/go-git/v5/plumbing"
	log "github.com/sirupsen/logrus"

	"github.com/vdye/commitview/internal/git"
)

// Vertex properties (label "commit"):
// oid, tree
// author_name, author_email, author_time, author_offset
// committer_name, committer_email, committer_time, committer_offset
// message (empty when it is not valid UTF-8), message_valid

// Edge types:
// parent (property: order), from a commit to each of its parents

func NewGremlinExporter(connectionString string) (*GremlinExporter, error) {
	conn, err := gremlin.NewDriverRemoteConnection(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", connectionString, err)
	}
	return &GremlinExporter{
		conn:     conn,
		vertices: make(map[plumbing.Hash]interface{}),
	}, nil
}

// GremlinExporter writes the commit graph to a Gremlin server.
type GremlinExporter struct {
	conn *gremlin.DriverRemoteConnection

	// vertex ids of commits already written or found on the server
	vertices map[plumbing.Hash]interface{}
}

func (e *GremlinExporter) Close() error {
	e.conn.Close()
	return nil
}

// Export writes tip and its ancestors, up to depth generations (0 for all),
// and returns the number of commits visited.
func (e *GremlinExporter) Export(ctx context.Context, tip *git.Commit, depth int) (int, error) {
	commits, err := collect(ctx, tip, depth)
	if err != nil {
		return 0, err
	}

	for _, commit := range commits {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := e.addCommit(commit); err != nil {
			return 0, err
		}
	}

	// Edges go in once every vertex exists. Parents cut off by depth are skipped.
	for _, commit := range commits {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		for i := 0; i < commit.ParentCount(); i++ {
			parent, err := commit.ParentId(i)
			if err != nil {
				return 0, err
			}
			if _, ok := e.vertices[parent]; !ok {
				continue
			}
			if err := e.addParentEdge(commit.Id(), parent, i); err != nil {
				return 0, err
			}
		}
	}

	log.WithFields(log.Fields{
		"tip":     tip.Id(),
		"commits": len(commits),
	}).Info("exported commit graph")
	return len(commits), nil
}

func (e *GremlinExporter) addCommit(commit *git.Commit) error {
	oid := commit.Id()
	g := gremlin.Traversal_().WithRemote(e.conn)

	existing, err := g.V().Has("commit", "oid", oid.String()).Id().ToList()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		e.vertices[oid] = existing[0].GetInterface()
		return nil
	}

	query := g.AddV("commit")
	for _, p := range commitProperties(commit) {
		query = query.Property(p.key, p.value)
	}
	res, err := query.Id().Next()
	if err != nil {
		return fmt.Errorf("failed to add commit %s: %w", oid, err)
	}
	e.vertices[oid] = res.GetInterface()
	return nil
}

func (e *GremlinExporter) addParentEdge(child, parent plumbing.Hash, order int) error {
	g := gremlin.Traversal_().WithRemote(e.conn)
	_, err := g.
		V(e.vertices[child]).As("source").
		V(e.vertices[parent]).As("target").
		AddE("parent").From("source").To("target").
		Property("order", int32(order)).Next()
	if err != nil {
		return fmt.Errorf("failed to link %s to parent %s: %w", child, parent, err)
	}
	return nil
}

type property struct {
	key   string
	value interface{}
}

func commitProperties(commit *git.Commit) []property {
	author := commit.Author()
	committer := commit.Committer()
	authorTime := commit.Time()
	committerTime := git.NewTime(committer.When)
	message, ok := commit.Message()

	return []property{
		{"oid", commit.Id().String()},
		{"tree", commit.TreeId().String()},
		{"author_name", author.Name},
		{"author_email", author.Email},
		{"author_time", authorTime.Seconds},
		{"author_offset", int32(authorTime.OffsetMinutes)},
		{"committer_name", committer.Name},
		{"committer_email", committer.Email},
		{"committer_time", committerTime.Seconds},
		{"committer_offset", int32(committerTime.OffsetMinutes)},
		{"message", message},
		{"message_valid", ok},
	}
}

// collect walks breadth first from tip, parents in order.
func collect(ctx context.Context, tip *git.Commit, depth int) ([]*git.Commit, error) {
	type queued struct {
		commit *git.Commit
		depth  int
	}

	var commits []*git.Commit
	seen := make(map[plumbing.Hash]bool)
	queue := []queued{{tip, 1}}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next := queue[0]
		queue = queue[1:]
		if seen[next.commit.Id()] {
			continue
		}
		seen[next.commit.Id()] = true
		commits = append(commits, next.commit)

		if depth > 0 && next.depth >= depth {
			continue
		}
		for i := 0; i < next.commit.ParentCount(); i++ {
			parent, err := next.commit.Parent(i)
			if err != nil {
				return nil, err
			}
			queue = append(queue, queued{parent, next.depth + 1})
		}
	}
	return commits, nil
}
