package wobsite

import (
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/net/html"

	"github.com/yorickpeterse/wobsite/internal/logfields"
	"github.com/yorickpeterse/wobsite/internal/rewrite"
)

// statusBufferSize bounds the completion channel. Workers block sending once
// the buffer fills, which keeps job fan-out from outrunning the dispatcher.
const statusBufferSize = 16

// Generator produces the content of a single generated file from the file
// index.
type Generator func(*Index) (string, error)

// PageBuilder renders one parsed page into a complete HTML document.
type PageBuilder func(*Index, *Page) (*html.Node, error)

// PageFactory returns the PageBuilder for a single page job. It is invoked
// once per matched file, from the job's own goroutine, so every job renders
// with its own builder. Builders must not capture state that other jobs
// mutate.
type PageFactory func() PageBuilder

// status is the terminal result of one build job.
type status struct {
	path string // output path the job was producing
	err  error  // nil on success
}

// Site dispatches the build jobs of a single site build and collects their
// results.
//
// Rule registration (Copy, Generate, Page, PageWithoutIndex) and Wait must
// all happen on the same goroutine: the pending job counter is owned by that
// goroutine and deliberately unsynchronized. Workers only ever touch the
// status channel.
type Site struct {
	index   *Index
	status  chan status
	pending int
	log     *slog.Logger
}

// New scans the source directory into an Index and returns a Site ready for
// rule registration.
func New(source, output string) (*Site, error) {
	index, err := NewIndex(source, output)
	if err != nil {
		return nil, err
	}

	return &Site{
		index:  index,
		status: make(chan status, statusBufferSize),
		log:    slog.Default(),
	}, nil
}

// Build scans source into an index, lets define register the build rules,
// and waits for all spawned jobs to finish.
func Build(source, output string, define func(*Site)) error {
	site, err := New(source, output)
	if err != nil {
		return err
	}

	define(site)

	return site.Wait()
}

// Index returns the file index shared by all build jobs.
func (s *Site) Index() *Index { return s.index }

// Copy registers a job for every file matching pattern that copies the file
// verbatim to the same relative location under the output directory.
func (s *Site) Copy(pattern string) {
	for _, file := range s.index.Match(pattern) {
		s.spawn(func() status { return s.copyFile(file) })
	}
}

// Generate registers a single job that invokes build exactly once and
// writes the returned content to the given output-relative path.
func (s *Site) Generate(path string, build Generator) {
	s.spawn(func() status { return s.generateFile(path, build) })
}

// Page registers a job for every Markdown document matching pattern. Each
// job parses its document, renders it with a builder obtained from factory,
// rewrites asset links in the resulting document, and writes it to the
// output path produced by folding the document into a directory index
// (foo.md becomes foo/index.html).
func (s *Site) Page(pattern string, factory PageFactory) {
	s.pages(pattern, factory, true)
}

// PageWithoutIndex is Page without the directory folding: foo.md is written
// to foo.html instead of foo/index.html.
func (s *Site) PageWithoutIndex(pattern string, factory PageFactory) {
	s.pages(pattern, factory, false)
}

// Wait blocks until every dispatched job has reported a status, then
// reports the failures: nil when all jobs succeeded, otherwise an Errors
// with one entry per failed job in the order the failures arrived.
func (s *Site) Wait() error {
	var errs Errors

	for s.pending > 0 {
		st := <-s.status
		s.pending--

		if st.err != nil {
			s.log.Debug("build job failed", logfields.Path(st.path), logfields.Error(st.err))
			errs = append(errs, BuildError{Path: st.path, Message: st.err.Error()})
			continue
		}

		s.log.Debug("build job finished", logfields.Path(st.path))
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}

// spawn dispatches one job. The pending counter is incremented before the
// goroutine starts, so Wait can never observe a completion for a job it has
// not yet counted.
func (s *Site) spawn(job func() status) {
	s.pending++

	go func() {
		s.status <- job()
	}()
}

func (s *Site) pages(pattern string, factory PageFactory, index bool) {
	for _, file := range s.index.Match(pattern) {
		s.spawn(func() status { return s.buildPage(file, factory, index) })
	}
}

func (s *Site) copyFile(file string) status {
	rel := relativePath(s.index.source, file)
	dst := filepath.Join(s.index.output, filepath.FromSlash(rel))

	data, err := os.ReadFile(file)
	if err != nil {
		return status{path: dst, err: err}
	}
	if err := writeFile(dst, data); err != nil {
		return status{path: dst, err: err}
	}

	return status{path: dst}
}

func (s *Site) generateFile(rel string, build Generator) status {
	dst := filepath.Join(s.index.output, filepath.FromSlash(rel))

	content, err := build(s.index)
	if err != nil {
		return status{path: dst, err: err}
	}
	if err := writeFile(dst, []byte(content)); err != nil {
		return status{path: dst, err: err}
	}

	return status{path: dst}
}

func (s *Site) buildPage(file string, factory PageFactory, index bool) status {
	rel := relativePath(s.index.source, file)
	dst := filepath.Join(s.index.output, filepath.FromSlash(pagePath(rel, index)))

	page, err := ParsePage(s.index.source, file)
	if err != nil {
		return status{path: dst, err: err}
	}

	doc, err := factory()(s.index, page)
	if err != nil {
		return status{path: dst, err: err}
	}

	rewrite.Assets(doc, page.URL, s.index)

	data, err := renderHTML(doc)
	if err != nil {
		return status{path: dst, err: err}
	}
	if err := writeFile(dst, data); err != nil {
		return status{path: dst, err: err}
	}

	return status{path: dst}
}

// writeFile writes data to path, creating missing parent directories.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
