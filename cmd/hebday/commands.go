package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tartampluch/hebday/internal/app"
	"github.com/tartampluch/hebday/internal/config"
	"github.com/tartampluch/hebday/internal/engine"
	"github.com/tartampluch/hebday/internal/records"
)

// cli carries the state shared by every command: the resolved settings and
// the log file to close on exit.
type cli struct {
	cfgFile  string
	debug    bool
	settings config.Settings
	logFile  io.Closer
}

func (c *cli) close() {
	if c.logFile != nil {
		_ = c.logFile.Close() // Best effort close
	}
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           config.CmdRoot,
		Short:         config.CmdDescRoot,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			c.logFile = setupLogging(c.debug, cmd.Name() == config.CmdServe)
			logStartupInfo()

			dataDir, err := config.DataDir()
			if err != nil {
				return err
			}
			v := viper.New()
			config.SetDefaults(v, dataDir)
			c.settings, err = config.Load(v, c.cfgFile)
			return err
		},
	}
	root.SetVersionTemplate(fmt.Sprintf(config.MsgVersionOutput, config.AppName, config.Version, runtime.GOOS, runtime.GOARCH))
	root.PersistentFlags().StringVar(&c.cfgFile, config.FlagConfig, "", config.FlagDescConfig)
	root.PersistentFlags().BoolVar(&c.debug, config.FlagDebug, false, config.FlagDescDebug)

	root.AddCommand(c.serveCmd())
	root.AddCommand(c.convertCmd())
	root.AddCommand(c.nextCmd())
	root.AddCommand(c.importCmd())
	root.AddCommand(c.exportCmd())
	root.AddCommand(c.userCmd())
	return root
}

// withApp opens the full application for the duration of fn.
func (c *cli) withApp(clock engine.Clock, fn func(a *app.App) error) (err error) {
	a, err := app.Open(c.settings, clock)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}

// withEngine builds the converter stack without opening the database.
func (c *cli) withEngine(clock engine.Clock, fn func(e *engine.Engine, tr *app.Translator) error) error {
	tr := app.NewTranslator(c.settings.Language)
	e, cache, err := app.NewEngine(c.settings, clock, tr)
	if err != nil {
		return err
	}
	if err := fn(e, tr); err != nil {
		return err
	}
	return cache.SaveFile(c.settings.CacheSnapshot)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdServe,
		Short: config.CmdDescServe,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(nil, func(a *app.App) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

func (c *cli) convertCmd() *cobra.Command {
	var afterSunset bool
	cmd := &cobra.Command{
		Use:   config.CmdConvert,
		Short: config.CmdDescConvert,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			birth, err := engine.ParseGregorianDate(args[0])
			if err != nil {
				return err
			}
			return c.withEngine(nil, func(e *engine.Engine, _ *app.Translator) error {
				h, err := e.Converter.ToHebrew(cmd.Context(), birth, afterSunset)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), config.MsgConvertOutput, birth, h.Display, h.Month)
				return err
			})
		},
	}
	cmd.Flags().BoolVar(&afterSunset, config.FlagAfterSunset, false, config.FlagDescAfterSunset)
	return cmd
}

func (c *cli) nextCmd() *cobra.Command {
	var (
		afterSunset bool
		count       int
		now         string
	)
	cmd := &cobra.Command{
		Use:   config.CmdNext,
		Short: config.CmdDescNext,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			birth, err := engine.ParseGregorianDate(args[0])
			if err != nil {
				return err
			}
			if count < 1 || count > config.MaxProjectionCount {
				return fmt.Errorf("%s: %d", config.FlagCount, count)
			}
			clock, err := clockFor(now)
			if err != nil {
				return err
			}

			return c.withEngine(clock, func(e *engine.Engine, tr *app.Translator) error {
				h, err := e.Converter.ToHebrew(cmd.Context(), birth, afterSunset)
				if err != nil {
					return err
				}
				proj, err := e.Project(cmd.Context(), h, count)
				if err != nil && len(proj.Occurrences) == 0 {
					return err
				}
				if err != nil {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), config.MsgNextPartial, err)
				}

				out := cmd.OutOrStdout()
				_, _ = fmt.Fprintln(out, h.Display)
				for i, occ := range proj.Occurrences {
					_, _ = fmt.Fprintf(out, config.MsgNextOutput, i+1, occ.Date, occ.HebrewYear)
				}
				for range count - len(proj.Occurrences) {
					_, _ = fmt.Fprintln(out, tr.Pending())
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&afterSunset, config.FlagAfterSunset, false, config.FlagDescAfterSunset)
	cmd.Flags().IntVar(&count, config.FlagCount, config.DefaultProjectionCount, config.FlagDescCount)
	cmd.Flags().StringVar(&now, config.FlagNow, "", config.FlagDescNow)
	return cmd
}

func clockFor(now string) (engine.Clock, error) {
	if now == "" {
		return engine.RealClock{}, nil
	}
	d, err := engine.ParseGregorianDate(now)
	if err != nil {
		return nil, err
	}
	return engine.FixedClock{At: d.Time(time.Local)}, nil
}

func (c *cli) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdImport,
		Short: config.CmdDescImport,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(nil, func(a *app.App) error {
				res, err := importSource(cmd, a, args[0])
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), config.MsgImportOutput, res.Imported, res.Skipped)
				return err
			})
		},
	}
}

// importSource reads a local file, or downloads it when source is an
// http(s) URL.
func importSource(cmd *cobra.Command, a *app.App, source string) (records.ImportResult, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == config.SchemeHTTP || u.Scheme == config.SchemeHTTPS) {
		return a.Records.ImportURL(cmd.Context(), records.NewHTTPFetcher(), source, "", "", "")
	}

	format, err := records.DetectFormat(source)
	if err != nil {
		return records.ImportResult{}, err
	}
	f, err := os.Open(source)
	if err != nil {
		return records.ImportResult{}, err
	}
	defer func() { _ = f.Close() }()
	return a.Records.Import(cmd.Context(), f, format, "")
}

func (c *cli) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   config.CmdExport,
		Short: config.CmdDescExport,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(nil, func(a *app.App) (err error) {
				active, err := a.Records.Active(cmd.Context())
				if err != nil {
					return err
				}
				archived, err := a.Records.Archived(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(args) == 1 {
					f, ferr := os.OpenFile(args[0], os.O_CREATE|os.O_TRUNC|os.O_WRONLY, config.FilePermUserRW)
					if ferr != nil {
						return ferr
					}
					defer func() {
						if cerr := f.Close(); err == nil {
							err = cerr
						}
					}()
					out = f
				}
				return records.ExportCSV(out, append(active, archived...), a.Records.Now())
			})
		},
	}
}

func (c *cli) userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   config.CmdUser,
		Short: config.CmdDescUser,
	}

	var first, last, password string
	add := &cobra.Command{
		Use:   config.CmdUserAdd,
		Short: config.CmdDescUserAdd,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				var err error
				if password, err = readPassword(cmd); err != nil {
					return err
				}
			}
			return c.withApp(nil, func(a *app.App) error {
				svc, err := a.Auth()
				if err != nil {
					return err
				}
				name := strings.TrimSpace(first + " " + last)
				u, err := svc.Register(cmd.Context(), args[0], name, password)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), config.MsgUserCreated, u.Role, u.Email)
				return err
			})
		},
	}
	add.Flags().StringVar(&first, config.FlagFirstName, "", config.FlagDescFirstName)
	add.Flags().StringVar(&last, config.FlagLastName, "", config.FlagDescLastName)
	add.Flags().StringVar(&password, config.FlagPassword, "", config.FlagDescPassword)

	user.AddCommand(add)
	return user
}

func readPassword(cmd *cobra.Command) (string, error) {
	_, _ = fmt.Fprint(cmd.ErrOrStderr(), config.MsgPasswordPrmpt)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
