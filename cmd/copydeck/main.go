package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"copydeck/internal/api"
	"copydeck/internal/app"
	"copydeck/internal/config"
	"copydeck/internal/secrets"
	"copydeck/internal/tracker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a wired App. The caller must defer a.Close().
func newApp() (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// promptToken reads an access token without echoing it.
func promptToken(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04:05")
}

var rootCmd = &cobra.Command{
	Use:   "copydeck",
	Short: "Design file text sync and review tool",
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration and encryption keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		cipher := secrets.NewAgeCipher(cfg.Secrets)
		if err := cipher.Setup(); err != nil {
			return fmt.Errorf("failed to generate keys: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		fmt.Printf("Keys: %s\n", cfg.Secrets.PublicKeyPath)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:  %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:   %s\n", cfg.LogDir)
		fmt.Printf("Provider:  %s\n", cfg.Provider.BaseURL)
		fmt.Printf("Database:  %s\n", cfg.Database.Type)
		fmt.Printf("Images:    %s\n", cfg.Images.Type)
		fmt.Printf("API Addr:  %s\n", cfg.API.Addr)
		return nil
	},
}

// project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a design file for tracking",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		fileKey, _ := cmd.Flags().GetString("file")
		pages, _ := cmd.Flags().GetStringSlice("pages")
		frames, _ := cmd.Flags().GetStringSlice("frames")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		// Use the app-wide default token, or prompt when none is set.
		token, err := a.Service().DefaultToken()
		if err != nil {
			return err
		}
		if token == "" {
			token, err = promptToken("Access token: ")
			if err != nil {
				return err
			}
		}

		project, err := a.Service().CreateProject(tracker.ProjectInput{
			Name:           name,
			FileKey:        fileKey,
			Token:          token,
			IncludedFrames: frames,
			SourcePageIDs:  pages,
		})
		if err != nil {
			return err
		}

		fmt.Printf("Project created: %s (%s)\n", project.Name, project.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		projects, err := a.Service().ListProjects(all)
		if err != nil {
			return err
		}

		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}

		for _, p := range projects {
			archived := ""
			if p.Archived {
				archived = "  [archived]"
			}
			fmt.Printf("%s  %-20s  file:%s  last sync: %s%s\n",
				p.ID, p.Name, p.FileKey, formatTimePtr(p.LastSync), archived)
		}
		return nil
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive PROJECT_ID",
	Short: "Archive a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().ArchiveProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("Project archived: %s\n", args[0])
		return nil
	},
}

var projectRestoreCmd = &cobra.Command{
	Use:   "restore PROJECT_ID",
	Short: "Restore an archived project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().RestoreProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("Project restored: %s\n", args[0])
		return nil
	},
}

var projectRmCmd = &cobra.Command{
	Use:   "rm PROJECT_ID",
	Short: "Delete a project and all its data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service().DeleteProject(args[0]); err != nil {
			return err
		}
		fmt.Printf("Project deleted: %s\n", args[0])
		return nil
	},
}

// token command
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Set the default access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := promptToken("Access token: ")
		if err != nil {
			return err
		}
		if err := a.Service().SetDefaultToken(token); err != nil {
			return err
		}
		fmt.Println("Default token stored.")
		return nil
	},
}

// sync command
var syncCmd = &cobra.Command{
	Use:   "sync PROJECT_ID",
	Short: "Pull the remote file and classify text changes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service().Sync(context.Background(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("Synced %d block(s): %d new, %d updated, %d unchanged\n",
			result.Total, result.New, result.Updated, result.Unchanged)
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status PROJECT_ID",
	Short: "View project and frame review status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		status, err := a.Service().ProjectStatus(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Project status: %s\n", status)

		frames, err := a.Service().ListFrames(args[0])
		if err != nil {
			return err
		}
		for _, f := range frames {
			fmt.Printf("  %-24s  %-8s  pending:%d\n", f.Name, f.Status, f.PendingCount)
		}
		return nil
	},
}

// accept command
var acceptCmd = &cobra.Command{
	Use:   "accept PROJECT_ID [BLOCK_ID]",
	Short: "Accept pending text changes",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		switch {
		case all:
			result, err := a.Service().AcceptAllChanges(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Accepted %d change(s)\n", result.AcceptedCount)
		case len(args) == 2:
			if _, err := a.Service().AcceptChange(args[0], args[1]); err != nil {
				return err
			}
			fmt.Printf("Accepted change: %s\n", args[1])
		default:
			return fmt.Errorf("provide a BLOCK_ID or --all")
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export text block state as JSON or CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, _ := cmd.Flags().GetString("project")
		format, _ := cmd.Flags().GetString("format")
		sinceRaw, _ := cmd.Flags().GetString("since")
		out, _ := cmd.Flags().GetString("out")

		var since *time.Time
		if sinceRaw != "" {
			t, err := time.Parse(time.RFC3339, sinceRaw)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			since = &t
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Service().Export(tracker.ExportOptions{ProjectID: projectID, Since: since})
		if err != nil {
			return err
		}

		w := os.Stdout
		if out != "" {
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating output file: %w", err)
			}
			defer f.Close()
			w = f
		}

		switch format {
		case "csv":
			if err := tracker.WriteCSV(w, result.Items); err != nil {
				return err
			}
		case "json", "":
			if err := tracker.WriteJSON(w, result); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown format: %s", format)
		}

		fmt.Fprintf(os.Stderr, "Exported %d block(s)\n", result.Total)
		return nil
	},
}

// pages command
var pagesCmd = &cobra.Command{
	Use:   "pages PROJECT_ID",
	Short: "List the remote file's pages",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pages, err := a.Service().ListPages(context.Background(), args[0])
		if err != nil {
			return err
		}
		for _, p := range pages {
			fmt.Printf("%s  %s\n", p.ID, p.Name)
		}
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if addr == "" {
			addr = a.Config().API.Addr
		}

		server := api.NewServer(a.Service(), nil)
		fmt.Printf("Listening on %s\n", addr)
		return http.ListenAndServe(addr, server.Router())
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	projectCmd.AddCommand(projectAddCmd)
	projectAddCmd.Flags().String("name", "", "Project name")
	projectAddCmd.Flags().String("file", "", "Remote file key or URL")
	projectAddCmd.Flags().StringSlice("pages", nil, "Restrict sync to these page ids")
	projectAddCmd.Flags().StringSlice("frames", nil, "Restrict sync to these frame ids")
	projectCmd.AddCommand(projectListCmd)
	projectListCmd.Flags().Bool("all", false, "Include archived projects")
	projectCmd.AddCommand(projectArchiveCmd)
	projectCmd.AddCommand(projectRestoreCmd)
	projectCmd.AddCommand(projectRmCmd)

	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(acceptCmd)
	acceptCmd.Flags().Bool("all", false, "Accept every pending change")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("project", "", "Restrict to one project (commits the export)")
	exportCmd.Flags().String("format", "json", "Output format: json or csv")
	exportCmd.Flags().String("since", "", "Only blocks modified at or after this RFC 3339 time")
	exportCmd.Flags().String("out", "", "Write to a file instead of stdout")
	rootCmd.AddCommand(pagesCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
}
