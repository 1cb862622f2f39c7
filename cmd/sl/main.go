package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"shipline/internal/app"
	"shipline/internal/blob"
	"shipline/internal/config"
	"shipline/internal/db"
	"shipline/internal/domain"
	"shipline/internal/engine"
	"shipline/internal/events"
	"shipline/internal/hub"
	"shipline/internal/notify"
	"shipline/internal/repo"
	"shipline/internal/server"
	"shipline/internal/snapshot"
	"shipline/internal/timer"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Shipline CLI",
	Long: `Shipline tracks vessel IT-takeover checklists in real time.
Each vessel gets the standard runbook (13 tasks) plus per-machine endpoint
checklists; work is timed while in progress and every action lands in the
audit log. 'sl serve' runs the API, WebSocket push channel, and timer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SHIPLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("user", "", "acting user name (for vessel/task commands)")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(vesselCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(logCmd())
}

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default shipline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			secret := make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return err
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(hex.EncodeToString(secret))), 0o600); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			fmt.Println("database up to date at", db.Path(viper.GetString("workspace")))
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API, push channel, and accrual timer",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			log := zerolog.New(os.Stderr).With().Timestamp().Logger()

			conn, err := app.Open(workspace)
			if err != nil {
				return err
			}
			defer conn.Close()

			eng := engine.New(conn, cfg)
			if err := app.SeedUsers(cmd.Context(), eng, cfg); err != nil {
				return err
			}

			builder := snapshot.NewBuilder(eng.Repo, cfg.SnapshotTTL())
			h := hub.New(builder, log)
			serveCtx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			onChange := func() {
				builder.Invalidate()
				h.Broadcast(serveCtx)
			}
			eng.OnChange = onChange
			if cfg.Notify.WebhookURL != "" {
				eng.Notifier = notify.NewWebhook(cfg.Notify.WebhookURL, cfg.Notify.GroupName, cfg.NotifyTimeout(), log)
			}

			loop := timer.New(eng.Repo, cfg.TimerInterval(), log)
			loop.OnChange = onChange
			loop.Start(serveCtx)

			store, uploadDir, err := buildBlobStore(serveCtx, cfg)
			if err != nil {
				return err
			}

			handler, err := server.New(server.Config{
				Engine:    eng,
				Snapshots: builder,
				Hub:       h,
				Blobs:     store,
				UploadDir: uploadDir,
				BasePath:  basePath,
				Auth: server.AuthConfig{
					JWTSecret: cfg.Auth.JWTSecret,
					TokenTTL:  cfg.TokenTTL(),
				},
				Log: log,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-serveCtx.Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			log.Info().Str("addr", addr).Str("base_path", basePath).Msg("serving")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v1", "API base path")
	return cmd
}

func buildBlobStore(ctx context.Context, cfg *config.Config) (blob.Store, string, error) {
	if cfg.Uploads.Minio.Endpoint != "" {
		m := cfg.Uploads.Minio
		store, err := blob.NewMinio(ctx, blob.MinioOptions{
			Endpoint:  m.Endpoint,
			AccessKey: m.AccessKey,
			SecretKey: m.SecretKey,
			Bucket:    m.Bucket,
			UseSSL:    m.UseSSL,
		})
		if err != nil {
			return nil, "", fmt.Errorf("minio: %w", err)
		}
		return store, "", nil
	}
	dir := cfg.Uploads.Dir
	store, err := blob.NewDir(dir)
	if err != nil {
		return nil, "", err
	}
	return store, store.Path, nil
}

func vesselCmd() *cobra.Command {
	vessel := &cobra.Command{Use: "vessel", Short: "Manage vessels"}
	vessel.AddCommand(vesselListCmd())
	vessel.AddCommand(vesselCreateCmd())
	vessel.AddCommand(vesselDeleteCmd())
	vessel.AddCommand(vesselHideCmd())
	return vessel
}

func vesselListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vessels",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				items, err := e.ListVessels(ctx, actor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "IMO", "Status", "Hidden"})
				for _, v := range items {
					tw.AppendRow(table.Row{v.ID, v.Name, v.IMO, v.Status, v.Hidden})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func vesselCreateCmd() *cobra.Command {
	var name, imo string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a vessel with the template checklist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				v, err := e.CreateVessel(ctx, name, imo, actor)
				if err != nil {
					return err
				}
				return printJSON(v)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "vessel name")
	cmd.Flags().StringVar(&imo, "imo", "", "IMO number")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func vesselDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <vessel-id>",
		Short: "Delete a vessel and its checklist data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				return e.DeleteVessel(ctx, args[0], actor)
			})
		},
	}
	return cmd
}

func vesselHideCmd() *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "hide <vessel-id>",
		Short: "Hide a vessel from clients (--show to reverse)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				return e.SetVesselHidden(ctx, args[0], !show, actor)
			})
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "make the vessel visible again")
	return cmd
}

func taskCmd() *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}
	task.AddCommand(taskListCmd())
	task.AddCommand(taskTransitionCmd("start", "Start a task", engine.Engine.StartTask))
	task.AddCommand(taskTransitionCmd("pause", "Pause a task", engine.Engine.PauseTask))
	task.AddCommand(taskTransitionCmd("done", "Complete a task", engine.Engine.CompleteTask))
	return task
}

func taskListCmd() *cobra.Command {
	var vesselID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a vessel's tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				if _, err := e.GetVessel(ctx, vesselID, actor); err != nil {
					return err
				}
				items, err := e.Repo.ListTasksByVessel(ctx, vesselID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Title", "Group", "Status", "Elapsed", "Deadline"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.Number, t.Title, t.Group, t.Status, formatSeconds(t.ElapsedSeconds), formatSeconds(t.DeadlineSeconds)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&vesselID, "vessel", "", "vessel id")
	_ = cmd.MarkFlagRequired("vessel")
	return cmd
}

func taskTransitionCmd(use, short string, fn func(engine.Engine, context.Context, string, events.Actor) (domain.Task, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine, actor events.Actor) error {
				t, err := fn(e, ctx, args[0], actor)
				if err != nil {
					return err
				}
				return printJSON(t)
			})
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{Use: "user", Short: "Manage users"}
	user.AddCommand(userListCmd())
	user.AddCommand(userAddCmd())
	return user
}

func userListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Created"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.Name, u.Role, u.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func userAddCmd() *cobra.Command {
	var name, role, password string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer conn.Close()
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			u, err := e.SeedUser(cmd.Context(), name, role, password)
			if err != nil {
				return err
			}
			return printJSON(u)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&role, "role", "", "Admin, Onboard Eng, Remote Team, or Client")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{Use: "log", Short: "Audit log"}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var vesselID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				var (
					items []domain.LogEntry
					err   error
				)
				if vesselID != "" {
					items, err = r.ListLogsByVessel(ctx, vesselID, n)
				} else {
					items, err = r.ListLogs(ctx, n)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Time", "Action", "User", "Role", "Vessel"})
				for _, l := range items {
					vessel := ""
					if l.VesselID != nil {
						vessel = *l.VesselID
					}
					tw.AppendRow(table.Row{l.CreatedAt, l.Action, l.UserName, l.Role, vessel})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	cmd.Flags().StringVar(&vesselID, "vessel", "", "restrict to one vessel")
	return cmd
}

// --- helpers ---

// withEngine opens the workspace and resolves the acting user named by
// --user. Local CLI access bypasses password auth; it requires filesystem
// access to the workspace anyway.
func withEngine(ctx context.Context, fn func(context.Context, engine.Engine, events.Actor) error) error {
	workspace := viper.GetString("workspace")
	conn, err := app.Open(workspace)
	if err != nil {
		return err
	}
	defer conn.Close()
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	if err := app.SeedUsers(ctx, e, cfg); err != nil {
		return err
	}
	name := viper.GetString("user")
	if name == "" {
		return fmt.Errorf("--user required (acting user name)")
	}
	rec, err := e.Repo.GetUserByName(ctx, name)
	if err != nil {
		return fmt.Errorf("unknown user %q: %w", name, err)
	}
	actor := events.Actor{ID: rec.ID, Name: rec.Name, Role: rec.Role, IP: "cli"}
	return fn(ctx, e, actor)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	conn, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatSeconds(s int64) string {
	d := time.Duration(s) * time.Second
	return d.String()
}
