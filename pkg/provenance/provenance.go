package provenance

import (
	"fmt"
	"sort"
	"strings"

	"github.com/glorpus-work/wheelhouse/internal/logger"
)

// Provenance accumulates destination path to contributing sources during a
// bulk-copy operation.
type Provenance struct {
	targetDir  string
	provenance map[string][]Source
}

// New creates a Provenance auditor for files landing under targetDir.
func New(targetDir string) *Provenance {
	return &Provenance{
		targetDir:  targetDir,
		provenance: make(map[string][]Source),
	}
}

// Record notes that src contributed the file at dst.
func (p *Provenance) Record(src Source, dst string) {
	p.provenance[dst] = append(p.provenance[dst], src)
}

// Collision describes one destination provided with differing content by
// multiple sources. Fingerprints maps each distinct content fingerprint to the
// display labels of the sources that provided it.
type Collision struct {
	Dest         string
	Fingerprints map[string][]string
}

// CollisionError aggregates every destination whose sources disagree on
// content.
type CollisionError struct {
	TargetDir  string
	Origin     string
	Collisions []Collision
}

func (e *CollisionError) Error() string {
	var sb strings.Builder
	noun := "collision"
	if len(e.Collisions) != 1 {
		noun = "collisions"
	}
	fmt.Fprintf(&sb, "encountered %d %s populating %s", len(e.Collisions), noun, e.TargetDir)
	if e.Origin != "" {
		fmt.Fprintf(&sb, " from %s", e.Origin)
	}
	sb.WriteString(":")
	for i, collision := range e.Collisions {
		fmt.Fprintf(&sb, "\n%d. %s was provided by:", i+1, collision.Dest)
		fingerprints := make([]string, 0, len(collision.Fingerprints))
		for fingerprint := range collision.Fingerprints {
			fingerprints = append(fingerprints, fingerprint)
		}
		sort.Strings(fingerprints)
		for _, fingerprint := range fingerprints {
			fmt.Fprintf(&sb, "\n\tsha1:%s -> %s", fingerprint, strings.Join(collision.Fingerprints[fingerprint], ", "))
		}
	}
	return sb.String()
}

// CheckCollisions fingerprints every destination that accumulated more than
// one source and fails if any destination's sources disagree on content.
// Identical-content duplication from multiple sources is not an error. When
// collisionsOK is true the aggregated report is downgraded to a warning for
// best-effort installs. origin, when non-empty, names what was being
// installed for error context.
func (p *Provenance) CheckCollisions(collisionsOK bool, origin string) error {
	dests := make([]string, 0, len(p.provenance))
	for dst, srcs := range p.provenance {
		if len(srcs) > 1 {
			dests = append(dests, dst)
		}
	}
	if len(dests) == 0 {
		return nil
	}
	sort.Strings(dests)

	var collisions []Collision
	for _, dst := range dests {
		contents := make(map[string][]string)
		for _, src := range p.provenance[dst] {
			fingerprint, err := src.Fingerprint(nil)
			if err != nil {
				return fmt.Errorf("failed to audit %s: %w", dst, err)
			}
			contents[fingerprint] = append(contents[fingerprint], src.Display)
		}
		if len(contents) > 1 {
			collisions = append(collisions, Collision{Dest: dst, Fingerprints: contents})
		}
	}
	if len(collisions) == 0 {
		return nil
	}

	err := &CollisionError{TargetDir: p.targetDir, Origin: origin, Collisions: collisions}
	if !collisionsOK {
		return err
	}
	logger.Warnf("%v", err)
	return nil
}
