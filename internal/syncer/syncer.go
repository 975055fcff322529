// Package syncer drives a sync run: log in, resolve the collection, then
// create or update one editor project per local sketch and persist the
// sketch map.
package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/sketchsync/sketchsync/internal/logging"
	"github.com/sketchsync/sketchsync/internal/metrics"
	"github.com/sketchsync/sketchsync/internal/scanner"
	"github.com/sketchsync/sketchsync/internal/sketch"
	"github.com/sketchsync/sketchsync/internal/state"
	"github.com/sketchsync/sketchsync/pkg/client"
	"github.com/sketchsync/sketchsync/pkg/models"
	"github.com/sketchsync/sketchsync/pkg/tree"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrFolderNotFound     = errors.New("sketch folder does not exist")
)

// Remote is the editor API used by a run. *client.Client implements it.
type Remote interface {
	Login(ctx context.Context, username, password string) error
	ResolveCollection(ctx context.Context, name string) (id string, created bool, err error)
	CreateProject(ctx context.Context, name string, files []models.FileNode) (*models.Project, error)
	UpdateProject(ctx context.Context, id, name string, files []models.FileNode) (*models.Project, error)
	AddToCollection(ctx context.Context, collectionID, projectID string) error
}

// Options configures a Syncer.
type Options struct {
	FS             billy.Filesystem
	Root           string
	CollectionName string
	Remote         Remote
	Store          state.Store
	DryRun         bool
	IDs            sketch.IDFunc
}

// Summary reports the outcome of a run.
type Summary struct {
	Collection        string
	CollectionCreated bool
	Created           []string
	Updated           []string
	Failed            []string

	// Unlinked lists created sketches that could not be added to the collection.
	Unlinked []string

	Saved    bool
	SaveErr  error
	Duration time.Duration
}

// Syncer runs one sync. It is not safe for concurrent use.
type Syncer struct {
	opts Options
}

// New creates a Syncer.
func New(opts Options) *Syncer {
	if opts.IDs == nil {
		opts.IDs = sketch.NewObjectID
	}
	return &Syncer{opts: opts}
}

// Run performs the sync. Errors returned are fatal to the run: missing
// credentials or folder, login, collection resolution, scanning and loading
// the sketch map. Failures of individual sketches and of saving the map are
// logged and reported in the summary instead.
func (s *Syncer) Run(ctx context.Context, username, password string) (*Summary, error) {
	start := time.Now()
	sum := &Summary{}
	defer func() {
		sum.Duration = time.Since(start)
		metrics.RecordRun(sum.Duration)
	}()

	if username == "" || password == "" {
		return sum, ErrMissingCredentials
	}
	if err := s.checkFolder(); err != nil {
		return sum, err
	}

	if !s.opts.DryRun {
		if err := s.opts.Remote.Login(ctx, username, password); err != nil {
			if client.IsUnauthorized(err) {
				return sum, fmt.Errorf("login rejected for %s, check the username and password: %w", username, err)
			}
			return sum, fmt.Errorf("login: %w", err)
		}
		logging.Info("logged in", logging.String("user", username))

		id, created, err := s.opts.Remote.ResolveCollection(ctx, s.opts.CollectionName)
		if err != nil {
			return sum, fmt.Errorf("resolve collection %q: %w", s.opts.CollectionName, err)
		}
		if id == "" {
			return sum, fmt.Errorf("resolve collection %q: empty collection id", s.opts.CollectionName)
		}
		sum.Collection, sum.CollectionCreated = id, created
		logging.Info("using collection",
			logging.String("name", s.opts.CollectionName),
			logging.String("id", id),
			logging.Bool("created", created))
	}

	sketches, err := s.opts.Store.Load(ctx)
	if err != nil {
		return sum, fmt.Errorf("load sketch map: %w", err)
	}

	dirs, err := scanner.Find(s.opts.FS, s.opts.Root)
	if err != nil {
		return sum, fmt.Errorf("scan %s: %w", s.opts.Root, err)
	}
	logging.Info("found sketches",
		logging.String("folder", s.opts.Root),
		logging.Int("count", len(dirs)),
		logging.Int("known", len(sketches)))

	for _, dir := range dirs {
		sketches = s.syncOne(ctx, dir, sketches, sum)
	}

	if s.opts.DryRun {
		return sum, nil
	}

	if err := s.opts.Store.Save(ctx, sketches); err != nil {
		sum.SaveErr = err
		logging.Error("error writing sketch map",
			logging.String("store", s.opts.Store.String()),
			logging.Err(err))
	} else {
		sum.Saved = true
		logging.Debug("sketch map saved",
			logging.String("store", s.opts.Store.String()),
			logging.Int("records", len(sketches)))
	}

	logging.Info("sync complete",
		logging.Int("created", len(sum.Created)),
		logging.Int("updated", len(sum.Updated)),
		logging.Int("failed", len(sum.Failed)),
		logging.Duration("duration", time.Since(start)))
	return sum, nil
}

func (s *Syncer) checkFolder() error {
	info, err := s.opts.FS.Stat(s.opts.Root)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return fmt.Errorf("%w: %s", ErrFolderNotFound, s.opts.Root)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", s.opts.Root, err)
	}
	return nil
}

// syncOne creates or updates a single sketch and returns the sketch map,
// extended when a new project was created.
func (s *Syncer) syncOne(ctx context.Context, dir string, sketches models.SketchMap, sum *Summary) models.SketchMap {
	name := sketch.Name(dir)

	files, err := sketch.Build(s.opts.FS, dir, s.opts.IDs)
	if err != nil {
		sum.Failed = append(sum.Failed, name)
		logging.Error("error reading sketch", logging.String("sketch", name), logging.Err(err))
		return sketches
	}
	if err := tree.Validate(files); err != nil {
		sum.Failed = append(sum.Failed, name)
		logging.Error("invalid file tree", logging.String("sketch", name), logging.Err(err))
		return sketches
	}
	if tree.SelectedFile(files) == nil {
		logging.Warn("sketch has no "+models.SelectedFileName+", the editor opens no file by default",
			logging.String("sketch", name))
	}

	record, known := sketches.Find(name)

	if s.opts.DryRun {
		action := metrics.ActionCreate
		if known {
			action = metrics.ActionUpdate
		}
		logging.Info("dry run: would "+action+" sketch",
			logging.String("sketch", name),
			logging.Int("files", tree.CountFiles(files)))
		var buf bytes.Buffer
		if err := tree.Print(&buf, files); err != nil {
			logging.Debug("cannot print file tree", logging.String("sketch", name), logging.Err(err))
		} else {
			logging.Debug("file tree", logging.String("sketch", name), logging.String("tree", buf.String()))
		}
		return sketches
	}

	if known {
		project, err := s.opts.Remote.UpdateProject(ctx, record.ID, name, files)
		metrics.RecordSketch(metrics.ActionUpdate, err == nil)
		if err != nil {
			sum.Failed = append(sum.Failed, name)
			logging.Error("error updating sketch",
				logging.String("sketch", name),
				logging.String("id", record.ID),
				logging.Err(err))
			return sketches
		}
		metrics.RecordUpload(tree.CountFiles(files), tree.ContentSize(files))
		sum.Updated = append(sum.Updated, name)
		logging.Info("sketch updated", logging.String("sketch", name), logging.String("id", project.ID))
		return sketches
	}

	project, err := s.opts.Remote.CreateProject(ctx, name, files)
	metrics.RecordSketch(metrics.ActionCreate, err == nil)
	if err != nil {
		sum.Failed = append(sum.Failed, name)
		logging.Error("error creating sketch", logging.String("sketch", name), logging.Err(err))
		return sketches
	}
	metrics.RecordUpload(tree.CountFiles(files), tree.ContentSize(files))
	sketches = sketches.Add(project.ID, name)
	sum.Created = append(sum.Created, name)
	logging.Info("sketch created", logging.String("sketch", name), logging.String("id", project.ID))

	err = s.opts.Remote.AddToCollection(ctx, sum.Collection, project.ID)
	metrics.RecordSketch(metrics.ActionLink, err == nil)
	if err != nil {
		sum.Unlinked = append(sum.Unlinked, name)
		logging.Error("error adding sketch to collection",
			logging.String("sketch", name),
			logging.String("collection", sum.Collection),
			logging.Err(err))
		return sketches
	}
	logging.Info("sketch added to collection",
		logging.String("sketch", name),
		logging.String("collection", sum.Collection))
	return sketches
}
