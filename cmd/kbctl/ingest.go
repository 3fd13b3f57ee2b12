package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Kar2410/FLOW-FIX/internal/domain/jobModel"
	"github.com/Kar2410/FLOW-FIX/internal/job"
	"github.com/spf13/cobra"
)

func (c *cli) newIngestCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "ingest [file]",
		Short: "Chunk, embed and store a document",
		Long: `Extracts the text of a PDF, DOCX or TXT file, chunks it, embeds every
chunk and stores it under a new document id. The source file is left untouched.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runIngest(cmd, args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (defaults to the file name)")
	return cmd
}

func (c *cli) runIngest(cmd *cobra.Command, path, name string) error {
	ctx := cmd.Context()
	if name == "" {
		name = filepath.Base(path)
	}

	doc, err := c.kb.RegisterDocument(ctx, name)
	if err != nil {
		return err
	}

	// the ingest pipeline removes its input, so it works on a copy
	staged, err := stageCopy(path)
	if err != nil {
		_, _, _ = c.kb.DeleteDocument(ctx, doc.Id)
		return err
	}

	result := c.kb.IngestDocument(ctx, job.NewIngestJob("", doc, staged))
	if result.Status == jobModel.JobStatusError {
		return fmt.Errorf("ingest %s failed: %s", name, result.Error.Message)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s as %s (%d chunks)\n", name, doc.Id, result.JobPayload.ChunkCount)
	return nil
}

func stageCopy(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "kbctl-*"+filepath.Ext(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		return "", errors.Join(err, dst.Close(), os.Remove(dst.Name()))
	}
	return dst.Name(), dst.Close()
}
