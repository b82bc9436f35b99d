package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/adamwoolhether/httpsession/session"
	"github.com/adamwoolhether/httpsession/session/transfer"
)

func newGetCmd(flags *globalFlags) *cobra.Command {
	var (
		method string
		data   string
	)

	cmd := &cobra.Command{
		Use:   "get URL",
		Short: "Fetch a URL and print the response body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := flags.newSession(cmd)
			if err != nil {
				return err
			}
			defer done()

			req := session.NewRequest(args[0], strings.ToUpper(method))

			var (
				b    []byte
				resp *http.Response
			)
			if data != "" {
				b, resp, err = s.UploadData(cmd.Context(), req, []byte(data))
			} else {
				b, resp, err = s.Data(cmd.Context(), req)
			}
			if err != nil {
				return err
			}

			printStatus(cmd, resp)
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodGet, "HTTP method")
	cmd.Flags().StringVarP(&data, "data", "d", "", "request body")

	return cmd
}

func newUploadCmd(flags *globalFlags) *cobra.Command {
	var method string

	cmd := &cobra.Command{
		Use:   "upload URL FILE",
		Short: "Send a file as the request body and print the response body",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := flags.newSession(cmd)
			if err != nil {
				return err
			}
			defer done()

			b, resp, err := s.UploadFile(cmd.Context(), session.NewRequest(args[0], strings.ToUpper(method)), args[1])
			if err != nil {
				return err
			}

			printStatus(cmd, resp)
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}

	cmd.Flags().StringVarP(&method, "request", "X", http.MethodPut, "HTTP method")

	return cmd
}

func newDownloadCmd(flags *globalFlags) *cobra.Command {
	var (
		output     string
		resumeFile string
		sha        string
	)

	cmd := &cobra.Command{
		Use:   "download URL",
		Short: "Download a URL to a file; interrupting saves resume data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := flags.newSession(cmd)
			if err != nil {
				return err
			}
			defer done()

			if output == "" {
				output = filepath.Base(args[0])
			}
			if resumeFile == "" {
				resumeFile = output + ".resume"
			}

			task, err := s.DownloadTask(context.WithoutCancel(cmd.Context()), session.NewRequest(args[0], http.MethodGet), nil)
			if err != nil {
				return err
			}

			return runDownload(cmd, task, output, resumeFile, sha)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: last URL path element)")
	cmd.Flags().StringVar(&resumeFile, "resume-file", "", "where to save resume data on interrupt (default: OUTPUT.resume)")
	cmd.Flags().StringVar(&sha, "sha256", "", "expected hex SHA-256 of the downloaded file")

	return cmd
}

func newResumeCmd(flags *globalFlags) *cobra.Command {
	var (
		output string
		sha    string
	)

	cmd := &cobra.Command{
		Use:   "resume RESUME_FILE",
		Short: "Continue an interrupted download",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := flags.newSession(cmd)
			if err != nil {
				return err
			}
			defer done()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading resume data: %w", err)
			}

			if output == "" {
				output = strings.TrimSuffix(args[0], ".resume")
			}

			task, err := s.DownloadTaskWithResumeData(context.WithoutCancel(cmd.Context()), data, nil)
			if err != nil {
				return err
			}

			if err := runDownload(cmd, task, output, args[0], sha); err != nil {
				return err
			}

			return os.Remove(args[0])
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "destination file (default: RESUME_FILE without .resume)")
	cmd.Flags().StringVar(&sha, "sha256", "", "expected hex SHA-256 of the downloaded file")

	return cmd
}

// runDownload resumes task, verifies the finished file against sha when set
// and moves it to output. An interrupt cancels the task and stores its
// resume data in resumeFile.
func runDownload(cmd *cobra.Command, task *session.Task, output, resumeFile, sha string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	task.Resume()

	select {
	case <-task.Done():
	case <-ctx.Done():
		data, err := task.CancelByProducingResumeData()
		if err != nil {
			return fmt.Errorf("download interrupted: %w", err)
		}
		if err := os.WriteFile(resumeFile, data, 0o600); err != nil {
			return fmt.Errorf("saving resume data: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString("interrupted, continue with: httpsession resume %s", resumeFile))
		return nil
	}

	if err := task.Wait(); err != nil {
		return err
	}

	resp := task.Response()
	printStatus(cmd, resp)
	if err := session.CheckStatus(resp, http.StatusOK, http.StatusPartialContent); err != nil {
		if p := task.Path(); p != "" {
			os.Remove(p)
		}
		return err
	}

	path, err := downloadedPath(task)
	if err != nil {
		return err
	}
	if sha != "" {
		if err := transfer.VerifyFile(path, sha256.New(), sha); err != nil {
			os.Remove(path)
			return err
		}
	}
	if err := moveFile(path, output); err != nil {
		return err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), color.GreenString("saved %s", output))
	return nil
}

// downloadedPath returns the file written by a finished download task.
func downloadedPath(task *session.Task) (string, error) {
	p := task.Path()
	if p == "" {
		return "", errors.New("download produced no file")
	}
	return p, nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening download: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying download: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	return os.Remove(src)
}
