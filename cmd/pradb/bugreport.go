package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pradb/pradb/internal/adb"
	"github.com/pradb/pradb/internal/config"
	"github.com/spf13/cobra"
)

const (
	bugreportLogLimit = 3
	redactedValue     = "***REDACTED***"
)

var (
	bugreportNowFn = func() time.Time {
		return time.Now().UTC()
	}
	bugreportHomeDirFn = os.UserHomeDir
	bugreportGetwdFn   = os.Getwd
)

func newBugreportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "bugreport",
		Short: "Collect a diagnostic bundle for debugging",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.logger.With("command", "bugreport").Info("collecting diagnostic bundle")
			return runBugReport(cmd.Context(), a, cmd.OutOrStdout())
		},
	}
}

func runBugReport(ctx context.Context, a *app, out io.Writer) error {
	homeDir, err := bugreportHomeDirFn()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}
	homeDir = filepath.Clean(homeDir)
	if strings.TrimSpace(homeDir) == "" || homeDir == "." {
		return errors.New("home directory is not valid")
	}

	cwd, err := bugreportGetwdFn()
	if err != nil {
		return fmt.Errorf("resolve current directory: %w", err)
	}
	cwd = filepath.Clean(cwd)

	timestamp := bugreportNowFn().Format("20060102-150405")
	bundlePath := filepath.Join(cwd, fmt.Sprintf(".pradb-bugreport-%s.tar.gz", timestamp))

	stagingDir, err := os.MkdirTemp("", "pradb-bugreport-*")
	if err != nil {
		return fmt.Errorf("create staging directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(stagingDir)
	}()

	summary, err := collectBugreportArtifacts(ctx, a, homeDir, cwd, stagingDir)
	if err != nil {
		return err
	}
	if err := writeBugreportREADME(stagingDir, summary); err != nil {
		return err
	}
	if err := archiveBugreport(stagingDir, bundlePath); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(out, "Bug report written to: %s. Share for debugging.\n", bundlePath); err != nil {
		return fmt.Errorf("write bugreport output: %w", err)
	}
	return nil
}

type bugreportSummary struct {
	Timestamp string
	Version   string
	Address   string
	LogFiles  []string
	LastError string
	Warnings  []string
}

func collectBugreportArtifacts(
	ctx context.Context,
	a *app,
	homeDir string,
	cwd string,
	stagingDir string,
) (bugreportSummary, error) {
	summary := bugreportSummary{
		Timestamp: bugreportNowFn().Format(time.RFC3339),
		Version:   Version,
		Address:   a.cfg.Address,
		Warnings:  make([]string, 0),
	}

	logDir := a.cfg.LogDir
	if logDir == "" {
		logDir = filepath.Join(homeDir, ".pradb", "logs")
	}
	logFiles, warnings := copyRecentLogs(logDir, stagingDir, bugreportLogLimit)
	summary.LogFiles = logFiles
	summary.Warnings = append(summary.Warnings, warnings...)
	summary.LastError = extractLastError(logFiles)

	if err := writeVersionFile(stagingDir, summary.Version); err != nil {
		return bugreportSummary{}, err
	}
	if err := copyRedactedConfigs(homeDir, cwd, stagingDir, &summary); err != nil {
		return bugreportSummary{}, err
	}
	if err := writeDaemonState(ctx, a, stagingDir, &summary); err != nil {
		return bugreportSummary{}, err
	}
	return summary, nil
}

func copyRecentLogs(logsDir string, stagingDir string, limit int) ([]string, []string) {
	files, err := newestFiles(logsDir, limit)
	if err != nil {
		return nil, []string{fmt.Sprintf("unable to read logs directory: %v", err)}
	}

	destDir := filepath.Join(stagingDir, "logs")
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return nil, []string{fmt.Sprintf("unable to create logs staging directory: %v", err)}
	}

	warnings := make([]string, 0)
	copied := make([]string, 0, len(files))
	for _, file := range files {
		// #nosec G304 -- source path comes from enumerating the log directory.
		data, readErr := os.ReadFile(file.path)
		if readErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to read log %s: %v", file.path, readErr))
			continue
		}
		dstPath := filepath.Join(destDir, filepath.Base(file.path))
		if writeErr := os.WriteFile(dstPath, data, 0o600); writeErr != nil {
			warnings = append(warnings, fmt.Sprintf("unable to stage log %s: %v", file.path, writeErr))
			continue
		}
		copied = append(copied, file.path)
	}
	return copied, warnings
}

// extractLastError returns the message and err fields of the newest error record.
func extractLastError(logPaths []string) string {
	for _, logPath := range logPaths {
		// #nosec G304 -- log paths are selected from the log directory listing.
		data, err := os.ReadFile(logPath)
		if err != nil {
			continue
		}
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			record := map[string]any{}
			if err := json.Unmarshal([]byte(strings.TrimSpace(lines[i])), &record); err != nil {
				continue
			}
			if asString(record["level"]) != "error" {
				continue
			}
			msg := asString(record["msg"])
			if cause := asString(record["err"]); cause != "" {
				msg += ": " + cause
			}
			return msg
		}
	}
	return ""
}

func writeVersionFile(stagingDir, version string) error {
	content := fmt.Sprintf("pradb version: %s\n", strings.TrimSpace(version))
	if err := os.WriteFile(filepath.Join(stagingDir, "version.txt"), []byte(content), 0o600); err != nil {
		return fmt.Errorf("write version.txt: %w", err)
	}
	return nil
}

func copyRedactedConfigs(homeDir, cwd, stagingDir string, summary *bugreportSummary) error {
	paths := config.Paths(homeDir, cwd)
	names := []string{"config.home.toml", "config.project.toml"}
	for i, path := range paths {
		// #nosec G304 -- config paths are fixed locations under home and cwd.
		data, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("unable to read config %s: %v", path, err))
			}
			data = []byte("# config unavailable\n")
		}
		redacted := redactSensitiveConfig(string(data))
		if err := os.WriteFile(filepath.Join(stagingDir, names[i]), []byte(redacted), 0o600); err != nil {
			return fmt.Errorf("write redacted config: %w", err)
		}
	}
	return nil
}

func redactSensitiveConfig(configText string) string {
	lines := strings.Split(configText, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		key, _, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if !isSensitiveKey(strings.ToLower(strings.TrimSpace(key))) {
			continue
		}
		lines[i] = key + "= \"" + redactedValue + "\""
	}
	return strings.Join(lines, "\n")
}

func isSensitiveKey(key string) bool {
	for _, candidate := range []string{"token", "password", "secret", "apikey", "api_key", "auth", "header"} {
		if strings.Contains(key, candidate) {
			return true
		}
	}
	return false
}

// writeDaemonState records what the daemon reports. Query failures are kept
// in the bundle as warnings.
func writeDaemonState(ctx context.Context, a *app, stagingDir string, summary *bugreportSummary) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[ADDRESS]\n%s\n\n", a.cfg.Address)

	err := a.withSession(ctx, func(session *adb.Session) error {
		out, err := session.Version(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(&b, "[VERSION]\n%s %s\n\n", out.Status, formatVersion(out.Body))

		records, err := session.ListDevices(ctx)
		if err != nil {
			return err
		}
		b.WriteString("[DEVICES]\n")
		for _, record := range records {
			fmt.Fprintf(&b, "%s\t%s\n", record.Serial, record.Model)
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(&b, "\n[ERROR]\n%v\n", err)
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("daemon query failed: %v", err))
	}

	if err := os.WriteFile(filepath.Join(stagingDir, "daemon.txt"), []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write daemon.txt: %w", err)
	}
	return nil
}

func writeBugreportREADME(stagingDir string, summary bugreportSummary) error {
	var b strings.Builder
	b.WriteString("pradb Bug Report\n")
	b.WriteString("================\n\n")
	fmt.Fprintf(&b, "Generated: %s\n", summary.Timestamp)
	fmt.Fprintf(&b, "Version: %s\n", summary.Version)
	fmt.Fprintf(&b, "Daemon address: %s\n", summary.Address)
	fmt.Fprintf(&b, "Last logged error: %s\n\n", summary.LastError)
	b.WriteString("Included artifacts:\n")
	fmt.Fprintf(&b, "- logs/ (up to last %d log files)\n", bugreportLogLimit)
	b.WriteString("- config.home.toml, config.project.toml (redacted)\n")
	b.WriteString("- version.txt\n")
	b.WriteString("- daemon.txt (daemon version and attached devices)\n")
	if len(summary.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, warning := range summary.Warnings {
			b.WriteString("- " + warning + "\n")
		}
	}

	if err := os.WriteFile(filepath.Join(stagingDir, "README.txt"), []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write README.txt: %w", err)
	}
	return nil
}

func archiveBugreport(stagingDir, destination string) (err error) {
	// #nosec G304 -- destination is generated in the working directory with a fixed name pattern.
	archiveFile, err := os.OpenFile(destination, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create archive %s: %w", destination, err)
	}
	gzipWriter := gzip.NewWriter(archiveFile)
	tarWriter := tar.NewWriter(gzipWriter)
	defer func() {
		err = errors.Join(err, tarWriter.Close(), gzipWriter.Close(), archiveFile.Close())
	}()

	walkErr := filepath.WalkDir(stagingDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		return addArchiveFile(tarWriter, stagingDir, path, d)
	})
	if walkErr != nil {
		return fmt.Errorf("archive bugreport: %w", walkErr)
	}
	return nil
}

func addArchiveFile(tw *tar.Writer, root, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("read file info for %s: %w", path, err)
	}
	relPath, err := filepath.Rel(root, path)
	if err != nil {
		return fmt.Errorf("compute archive path for %s: %w", path, err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("create tar header for %s: %w", path, err)
	}
	header.Name = filepath.ToSlash(relPath)
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("write tar header for %s: %w", path, err)
	}

	// #nosec G304 -- walk paths originate from the staging directory.
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s for archive: %w", path, err)
	}
	defer file.Close()
	if _, err := io.Copy(tw, file); err != nil {
		return fmt.Errorf("copy %s into archive: %w", path, err)
	}
	return nil
}

type datedFile struct {
	path    string
	modTime time.Time
}

func newestFiles(dir string, limit int) ([]datedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]datedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, datedFile{path: filepath.Join(dir, entry.Name()), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})
	if limit > 0 && len(files) > limit {
		files = files[:limit]
	}
	return files, nil
}

func asString(value any) string {
	if typed, ok := value.(string); ok {
		return strings.TrimSpace(typed)
	}
	return ""
}
