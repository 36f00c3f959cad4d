// Package report persists a diff result as a JSON document.
package report

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"

	"github.com/yuya-takeyama/strict-s3-diff/pkg/diff"
	"github.com/yuya-takeyama/strict-s3-diff/pkg/logger"
)

const (
	DefaultSizeWarningBytes int64 = 100 * 1024 * 1024

	indent = 4

	// quotes, comma, newline and two levels of indentation around each key
	perKeyOverhead = 2 + 1 + 1 + 2*indent
	// braces, field separators and newlines
	documentOverhead = 16
)

var json = jsoniter.Config{
	IndentionStep: indent,
	EscapeHTML:    false,
}.Froze()

// WriteError is returned when the report could not be persisted
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write report %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

type Options struct {
	PrimaryBucket string
	MirrorBucket  string
	// SizeWarningBytes <= 0 uses DefaultSizeWarningBytes
	SizeWarningBytes int64
}

type Writer struct {
	opts   Options
	logger logger.Logger
}

func NewWriter(opts Options, log logger.Logger) *Writer {
	if opts.SizeWarningBytes <= 0 {
		opts.SizeWarningBytes = DefaultSizeWarningBytes
	}
	if log == nil {
		log = logger.NullLogger{}
	}
	return &Writer{opts: opts, logger: log}
}

// PrimaryField is the document field listing keys missing from the mirror
func (w *Writer) PrimaryField() string {
	return "only_in_primary_" + w.opts.PrimaryBucket
}

// MirrorField is the document field listing keys missing from the primary
func (w *Writer) MirrorField() string {
	return "only_in_mirror_" + w.opts.MirrorBucket
}

// EstimateSize approximates the encoded size of result in bytes
func (w *Writer) EstimateSize(result diff.Result) int64 {
	size := int64(documentOverhead + len(w.PrimaryField()) + len(w.MirrorField()))
	for _, k := range result.OnlyInPrimary {
		size += int64(len(k) + perKeyOverhead)
	}
	for _, k := range result.OnlyInMirror {
		size += int64(len(k) + perKeyOverhead)
	}
	return size
}

// Write serializes result to path. The document is written to a
// temporary file next to path and renamed into place, so a reader never
// sees a partial report. A large estimated size only triggers a warning.
func (w *Writer) Write(ctx context.Context, result diff.Result, path string) error {
	if err := ctx.Err(); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	log := w.logger.With("path", path)

	estimated := w.EstimateSize(result)
	if estimated > w.opts.SizeWarningBytes {
		log.Warn("report exceeds size warning threshold",
			"estimated_bytes", estimated,
			"threshold_bytes", w.opts.SizeWarningBytes,
		)
	}

	log.Info("saving differences")
	if err := w.writeAtomic(result, path); err != nil {
		werr := &WriteError{Path: path, Err: err}
		log.Error("failed to save differences", werr)
		return werr
	}

	log.Info("differences saved", "estimated_bytes", estimated)
	return nil
}

func (w *Writer) writeAtomic(result diff.Result, path string) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	buf := bufio.NewWriterSize(tmp, 64*1024)
	if err = w.encode(buf, result); err != nil {
		return err
	}
	if err = buf.Flush(); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

func (w *Writer) encode(buf *bufio.Writer, result diff.Result) error {
	stream := jsoniter.NewStream(json, buf, 64*1024)

	stream.WriteObjectStart()
	stream.WriteObjectField(w.PrimaryField())
	writeKeys(stream, result.OnlyInPrimary)
	stream.WriteMore()
	stream.WriteObjectField(w.MirrorField())
	writeKeys(stream, result.OnlyInMirror)
	stream.WriteObjectEnd()
	stream.WriteRaw("\n")

	if err := stream.Flush(); err != nil {
		return err
	}
	return stream.Error
}

func writeKeys(stream *jsoniter.Stream, keys []string) {
	if len(keys) == 0 {
		stream.WriteEmptyArray()
		return
	}

	stream.WriteArrayStart()
	for i, k := range keys {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteString(k)
	}
	stream.WriteArrayEnd()
}
