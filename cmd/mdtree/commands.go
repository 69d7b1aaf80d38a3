package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"mdtree/internal/auth"
	"mdtree/internal/config"
	"mdtree/internal/markup"
	"mdtree/internal/post"
	"mdtree/internal/render"
	"mdtree/internal/storage/fs"
	"mdtree/internal/store"
	"mdtree/internal/web"
)

var errTerminalInput = errors.New("refusing to read markup from a terminal; pass a file or pipe input")

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "mdtree",
		Short: "Assemble blog markup into a section tree",
		Long: `mdtree turns the line oriented blog markup into a nested JSON tree of
sections, blocks and media, and serves assembled posts over HTTP.

Environment Variables:
  MDTREE_CONTENT_PATH  directory of *.md posts
  MDTREE_DATA_PATH     directory of the sqlite cache
  MDTREE_LISTEN_ADDR   HTTP listen address`,
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAssembleCmd(), newServeCmd(), newUserAddCmd(), newUserListCmd(), newUserRemoveCmd())
	return root
}

func versionString() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	return "dev"
}

func newAssembleCmd() *cobra.Command {
	var (
		out    string
		indent bool
		raw    bool
	)
	cmd := &cobra.Command{
		Use:   "assemble [file]",
		Short: "Assemble a markup file (or stdin) and print the JSON tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "-"
			if len(args) == 1 {
				source = args[0]
			}
			text, err := readSource(source, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if !raw {
				_, body, err := post.Parse(text)
				if err != nil {
					return err
				}
				text = body
			}
			doc := markup.New(render.New()).Assemble(text)
			data, err := encodeTree(doc, indent)
			if err != nil {
				return err
			}
			if out != "" {
				if err := fs.WriteFileAtomic(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				slog.Info("tree written", "path", out, "nodes", doc.Count())
				return nil
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the tree to this file atomically")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	cmd.Flags().BoolVar(&raw, "raw", false, "assemble the input as is, without stripping frontmatter")
	return cmd
}

// readSource reads a file path, or stdin when source is "-". An interactive
// terminal on stdin is rejected.
func readSource(source string, stdin io.Reader) (string, error) {
	if source != "-" {
		data, err := os.ReadFile(source)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", source, err)
		}
		return string(data), nil
	}
	if file, ok := stdin.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		return "", errTerminalInput
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

func encodeTree(doc markup.Document, indent bool) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	return append(data, '\n'), nil
}

func newServeCmd() *cobra.Command {
	var addr, content string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve assembled posts over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.ListenAddr = addr
			}
			if content != "" {
				cfg.ContentPath = content
				if os.Getenv("MDTREE_DATA_PATH") == "" {
					cfg.DataPath = filepath.Join(content, ".mdtree")
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides MDTREE_LISTEN_ADDR)")
	cmd.Flags().StringVar(&content, "content", "", "content directory (overrides MDTREE_CONTENT_PATH)")
	return cmd
}

func serve(ctx context.Context, cfg config.Config) error {
	slog.Info("startup", "build_version", versionString(), "content", cfg.ContentPath)
	store.SetBuildVersion(buildVersion)

	dataPath, err := filepath.Abs(cfg.DataPath)
	if err != nil {
		return fmt.Errorf("resolve data path: %w", err)
	}
	cfg.DataPath = dataPath
	if err := os.MkdirAll(cfg.DataPath, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	lock, err := fs.AcquireFileLockWithTimeout(filepath.Join(cfg.DataPath, "serve.lock"), 2*time.Second)
	if err != nil {
		return fmt.Errorf("data dir %s is in use: %w", cfg.DataPath, err)
	}
	defer lock.Release()

	st, err := store.Open(filepath.Join(cfg.DataPath, "cache.sqlite"), cfg.DBBusyTimeout)
	if err != nil {
		return err
	}
	defer st.Close()
	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := st.Init(initCtx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	srv, err := web.NewServer(cfg, st)
	if err != nil {
		return fmt.Errorf("auth init: %w", err)
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	return httpServer.Shutdown(shutdownCtx)
}

func newUserAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user-add <username>",
		Short: "Add a user to the auth file, or update its password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user := strings.TrimSpace(args[0])
			if user == "" {
				return errors.New("username must not be empty")
			}
			if strings.Contains(user, ":") {
				return errors.New("username must not contain ':'")
			}
			authPath := config.Load().AuthFilePath()

			exists, err := userExists(authPath, user)
			if err != nil {
				return err
			}
			if exists {
				ok, err := promptYesNo(fmt.Sprintf("User %q exists. Update password? [y/N]: ", user))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), "no changes made")
					return nil
				}
			}

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm: ")
			if err != nil {
				return err
			}
			if password != confirm {
				return errors.New("passwords do not match")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			if err := auth.UpsertFile(authPath, user, hash); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "updated %s\n", authPath)
			return nil
		},
	}
}

func newUserListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user-list",
		Short: "List users in the auth file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listUsers(cmd.OutOrStdout(), config.Load().AuthFilePath())
		},
	}
}

func listUsers(w io.Writer, authPath string) error {
	if _, err := os.Stat(authPath); os.IsNotExist(err) {
		fmt.Fprintln(w, "no users")
		return nil
	}
	users, err := auth.LoadFile(authPath)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(w, "no users")
		return nil
	}
	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, name)
	}
	return nil
}

func newUserRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "user-remove <username>",
		Short: "Remove a user from the auth file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			authPath := config.Load().AuthFilePath()
			removed, err := auth.RemoveFile(authPath, strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("user %q not found in %s", args[0], authPath)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "updated %s\n", authPath)
			return nil
		},
	}
}

func promptPassword(prompt string) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(pass)), nil
}

func promptYesNo(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New("stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}
	answer = strings.TrimSpace(strings.ToLower(answer))
	return answer == "y" || answer == "yes", nil
}

func userExists(path, user string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat auth file: %w", err)
	}
	users, err := auth.LoadFile(path)
	if err != nil {
		return false, err
	}
	_, ok := users[user]
	return ok, nil
}
