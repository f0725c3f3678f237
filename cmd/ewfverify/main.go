// Command ewfverify re-reads an EWF image and reports whether its
// computed MD5/SHA-1 digests match the digests recorded at acquisition
// time.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lattice-forensics/goewf/ewf"
	"github.com/lattice-forensics/goewf/internal/pipeline"
)

var (
	flagChunkSize       uint32
	flagMediaSize       uint64
	flagCompression     string
	flagMaxSegmentSize  uint64
	flagWipeOnError     bool
	flagLogLevel        string
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ewfverify [segment-files...]",
		Short: "Verify an EWF image's acquisition hashes against a fresh read",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runVerify,
	}
	cmd.Flags().Uint32VarP(&flagChunkSize, "chunk-size", "b", 0, "sectors per chunk passed to the handle (an opened image keeps its own value)")
	cmd.Flags().Uint64VarP(&flagMediaSize, "media-size", "B", 0, "expected media size in bytes (0: no check)")
	cmd.Flags().StringVarP(&flagCompression, "compression", "c", "n", "compression level for any rewrite path: n(one)/e(mpty)/f(ast)/b(est)")
	cmd.Flags().Uint64VarP(&flagMaxSegmentSize, "segment-size", "S", 0, "maximum segment size in bytes (0: default)")
	cmd.Flags().BoolVar(&flagWipeOnError, "wipe-on-error", true, "zero-fill chunks that fail checksum verification")
	cmd.Flags().StringVar(&flagLogLevel, "log-level", "info", "logrus level: debug/info/warn/error")
	return cmd
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger := logrus.New()
	level, err := logrus.ParseLevel(flagLogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	opts := []ewf.Option{ewf.WithWipeChunkOnError(flagWipeOnError)}
	if flagMaxSegmentSize > 0 {
		opts = append(opts, ewf.WithMaximumSegmentSize(flagMaxSegmentSize))
	}
	if flagChunkSize > 0 {
		opts = append(opts, ewf.WithSectorsPerChunk(flagChunkSize))
	}
	opts = append(opts, ewf.WithCompression(compressionLevel(flagCompression), flagCompression == "e"))

	handle, err := ewf.Open(args, opts...)
	if err != nil {
		return fmt.Errorf("opening image: %w", err)
	}
	defer handle.Close()

	if flagMediaSize > 0 && handle.GetMediaSize() != flagMediaSize {
		logger.Warnf("media size mismatch: expected %d, image reports %d", flagMediaSize, handle.GetMediaSize())
	}

	verifier := ewf.NewVerifier(handle, ewf.VerifierOptions{
		CalculateMD5:  true,
		CalculateSHA1: true,
		Logger:        logger,
	})

	result, err := verifier.Run()
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if err := verifier.FprintChecksumErrors(cmd.OutOrStdout()); err != nil {
		return err
	}

	if len(result.ChecksumErrors) > 0 || !result.HashesMatch {
		fmt.Fprintln(cmd.OutOrStdout(), "verification FAILED")
		os.Exit(1)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "verification successful")
	return nil
}

func compressionLevel(flag string) pipeline.CompressionLevel {
	switch flag {
	case "f":
		return pipeline.CompressionFast
	case "b":
		return pipeline.CompressionBest
	default:
		return pipeline.CompressionNone
	}
}
