// Package composer maintains a revertible stack of tool attachments on top of a base kinematic
// tree description. Every attachment writes a merged description to a temporary file owned by
// the Composer; Close removes them.
package composer

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/robokit/kinsim/logging"
	"github.com/robokit/kinsim/spatialmath"
	"github.com/robokit/kinsim/utils"
)

// TreeEditor parses, merges and serializes tree descriptions of type T.
type TreeEditor[T any] interface {
	Parse(path string) (T, error)
	Merge(base, tool T, attachLink string, offset spatialmath.Pose) (T, error)
	Serialize(tree T, path string) error
}

// Attachment records one merge applied on top of the tree below it.
type Attachment struct {
	ToolName   string
	MergedPath string
	RootLink   string
	Offset     spatialmath.Pose
	Persist    bool
}

// Composer owns the attachment stack for one base description.
type Composer[T any] struct {
	basePath string
	tmpDir   string
	ownsDir  bool
	editor   TreeEditor[T]
	logger   logging.Logger

	stack []Attachment
	files []string
}

// Option configures a Composer.
type Option func(*options)

type options struct {
	tmpDir string
}

// WithTempDir places merged descriptions in dir instead of a fresh directory under os.TempDir.
// The directory itself is left in place on Close.
func WithTempDir(dir string) Option {
	return func(o *options) {
		o.tmpDir = dir
	}
}

// New returns a composer over the description at basePath.
func New[T any](basePath string, editor TreeEditor[T], logger logging.Logger, opts ...Option) (*Composer[T], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if _, err := os.Stat(basePath); err != nil {
		return nil, errors.Wrap(err, "base description")
	}
	c := &Composer[T]{basePath: basePath, editor: editor, logger: logger, tmpDir: o.tmpDir}
	if c.tmpDir == "" {
		dir, err := os.MkdirTemp("", "kinsim-composer-")
		if err != nil {
			return nil, err
		}
		c.tmpDir = dir
		c.ownsDir = true
	}
	return c, nil
}

// BasePath returns the description the stack is built on.
func (c *Composer[T]) BasePath() string {
	return c.basePath
}

// Active returns the description that should currently be loaded: the merged file of the top
// record, or the base when the stack is empty.
func (c *Composer[T]) Active() string {
	if len(c.stack) == 0 {
		return c.basePath
	}
	return c.stack[len(c.stack)-1].MergedPath
}

// Stack returns a copy of the attachment stack, bottom first.
func (c *Composer[T]) Stack() []Attachment {
	return append([]Attachment(nil), c.stack...)
}

// Restore replaces the stack with a copy of records previously returned by Stack and returns the
// new active path. Records must still refer to files this composer wrote.
func (c *Composer[T]) Restore(records []Attachment) string {
	c.stack = append([]Attachment(nil), records...)
	c.logger.Debugw("restored attachment stack", "depth", len(c.stack))
	return c.Active()
}

// Attach merges the tool description at toolPath onto rootLink of the active tree, writes the
// result to a new temporary file and pushes a record for it. It returns the new active path.
// Nothing is pushed when the merge fails.
func (c *Composer[T]) Attach(toolName, toolPath, rootLink string, offset spatialmath.Pose, persist bool) (string, error) {
	current, err := c.editor.Parse(c.Active())
	if err != nil {
		return "", err
	}
	tool, err := c.editor.Parse(toolPath)
	if err != nil {
		return "", err
	}
	merged, err := c.editor.Merge(current, tool, rootLink, offset)
	if err != nil {
		return "", errors.Wrapf(err, "attaching %q at %q", toolName, rootLink)
	}
	path, err := utils.JoinWithin(c.tmpDir, fmt.Sprintf("%s_tmp.urdf", uuid.NewString()))
	if err != nil {
		return "", err
	}
	if err := c.editor.Serialize(merged, path); err != nil {
		return "", multierr.Combine(err, utils.RemoveIfExists(path))
	}
	c.files = append(c.files, path)
	c.stack = append(c.stack, Attachment{
		ToolName:   toolName,
		MergedPath: path,
		RootLink:   rootLink,
		Offset:     offset,
		Persist:    persist,
	})
	c.logger.Debugw("attached tool", "tool", toolName, "link", rootLink, "path", path, "depth", len(c.stack))
	return path, nil
}

// Detach pops records from the top of the stack down to and including the most recent record
// named toolName, and returns the new active path. A name that is not on the stack pops every
// record, reverting to the base.
func (c *Composer[T]) Detach(toolName string) string {
	idx := -1
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].ToolName == toolName {
			idx = i
			break
		}
	}
	if idx == -1 {
		// An unknown name empties the stack rather than leaving it untouched. Callers rely on
		// this to force a full revert; it may deserve an error instead.
		c.logger.Warnw("tool not attached, reverting to base description", "tool", toolName)
		idx = 0
	}
	c.stack = c.stack[:idx]
	c.logger.Debugw("detached tool", "tool", toolName, "depth", len(c.stack))
	return c.Active()
}

// FilterPersistent drops every record from the first non-persistent one upwards, scanning from
// the bottom, and returns the new active path. Persistent records above a non-persistent one are
// dropped as well.
func (c *Composer[T]) FilterPersistent() string {
	for i, a := range c.stack {
		if !a.Persist {
			c.logger.Debugw("evicting non-persistent attachments", "from", a.ToolName, "dropped", len(c.stack)-i)
			c.stack = c.stack[:i]
			break
		}
	}
	return c.Active()
}

// Close removes every temporary description this composer wrote.
func (c *Composer[T]) Close() error {
	var err error
	for _, f := range c.files {
		err = multierr.Append(err, utils.RemoveIfExists(f))
	}
	c.files = nil
	c.stack = nil
	if c.ownsDir {
		err = multierr.Combine(err, os.RemoveAll(c.tmpDir))
	}
	return err
}
