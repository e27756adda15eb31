package wrapped

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/theimaginaryfoundation/gpt-wrapped/wrapped/fileutils"
)

// ExportedThread is the per-thread document written by ExportThreads.
type ExportedThread struct {
	ConversationID string            `json:"conversation_id"`
	Title          string            `json:"title,omitempty"`
	Stat           ThreadStat        `json:"stat"`
	Messages       []EnrichedMessage `json:"messages"`
}

// ExportOptions controls how ExportThreads writes per-thread files.
type ExportOptions struct {
	// OverwriteExisting controls whether existing output files should be overwritten.
	// If false and a file already exists, ExportThreads returns an error.
	OverwriteExisting bool

	// Pretty controls whether each output JSON file is indented for readability.
	Pretty bool

	// DirMode is used when creating the output directory (defaults to 0o755).
	DirMode fs.FileMode

	// FileMode is used when creating output files (defaults to 0o644).
	FileMode fs.FileMode
}

// ExportResult contains basic stats from an export run.
type ExportResult struct {
	ThreadsWritten int
	BytesWritten   int64
}

// ExportThreads writes one JSON file per conversation in corpus into outputDir. File names are the
// sanitized conversation id; collisions get "-2", "-3", ... suffixes.
func ExportThreads(ctx context.Context, corpus Corpus, outputDir string, opts ExportOptions) (ExportResult, error) {
	if ctx == nil {
		return ExportResult{}, errors.New("ExportThreads: ctx is nil")
	}
	if outputDir == "" {
		return ExportResult{}, errors.New("ExportThreads: outputDir is empty")
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0o755
	}
	if opts.FileMode == 0 {
		opts.FileMode = 0o644
	}
	if err := os.MkdirAll(outputDir, opts.DirMode); err != nil {
		return ExportResult{}, fmt.Errorf("ExportThreads: mkdir outputDir: %w", err)
	}

	ix := NewThreadIndex(corpus)
	seen := make(map[string]int)
	var res ExportResult

	for _, ts := range ix.Stats() {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		base := fileutils.SanitizeFilenameComponent(ts.ConvID)
		if base == "" {
			base = "thread"
		}
		seenCount := seen[base]
		seen[base] = seenCount + 1

		filename := base
		if seenCount > 0 {
			filename = fmt.Sprintf("%s-%d", base, seenCount+1)
		}
		filename += ".json"

		outPath := filepath.Join(outputDir, filename)
		if !opts.OverwriteExisting {
			if err := fileutils.EnsureNotExists(outPath); err != nil {
				return res, fmt.Errorf("ExportThreads: %w", err)
			}
		}

		doc := ExportedThread{
			ConversationID: ts.ConvID,
			Title:          ts.Title,
			Stat:           ts,
			Messages:       ix.Thread(ts.ConvID),
		}
		n, err := fileutils.WriteJSONFileAtomic(outPath, doc, opts.Pretty, opts.FileMode)
		if err != nil {
			return res, fmt.Errorf("ExportThreads: write output (id=%q): %w", ts.ConvID, err)
		}
		res.ThreadsWritten++
		res.BytesWritten += n
	}
	return res, nil
}
