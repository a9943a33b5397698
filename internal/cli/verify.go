// Package cli — verify.go implements the "macpack verify" command.
//
// The verify command smoke-tests a built bundle: it launches the app's
// executable from Contents/MacOS and waits for the app's embedded web
// server to accept TCP connections on the configured endpoint. Once the
// endpoint is up the app is shut down again; verify proves the bundle
// starts, not that it keeps running.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"macpack/internal/bundler"
	"macpack/internal/logging"
	"macpack/internal/manifest"
	"macpack/internal/model"
	"macpack/internal/probe"
)

// shutdownGrace is how long verify waits for the app to exit after an
// interrupt before killing it.
const shutdownGrace = 5 * time.Second

// verifyFlags holds the flag values for the verify command.
type verifyFlags struct {
	// bundle optionally points at an app bundle directly.
	bundle string

	// port overrides the readiness port. 0 picks a free port and passes
	// it to the app via --port.
	port int

	// timeout overrides the readiness deadline.
	timeout time.Duration
}

// NewVerifyCommand creates the "verify" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewVerifyCommand() *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Launch the built bundle and wait for readiness",
		Long: `Launch the built .app bundle and wait until its embedded web server
accepts TCP connections, then shut it down again.

The readiness endpoint comes from the manifest's verify section
(default 127.0.0.1:8000, 30s timeout). With --port 0, a free port is
picked and passed to the app as "--port <n>".

Examples:
  macpack verify
  macpack verify --timeout 60s
  macpack verify --port 0
  macpack verify --bundle dist/WhisperLiveKit.app`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.bundle, "bundle", "b", "", "App bundle path (default: located via the manifest)")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Readiness port (0 picks a free port and passes --port to the app)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Readiness deadline (default: manifest setting or 30s)")

	return cmd
}

// runVerify launches the bundle executable and probes its endpoint.
func runVerify(cmd *cobra.Command, flags *verifyFlags) error {
	ctx := cmd.Context()
	logger := logging.FromContext(ctx)
	errOut := cmd.ErrOrStderr()

	bundlePath, proj, err := locateBundleArg(flags.bundle, model.ExitVerify)
	if err != nil {
		return err
	}

	// Provenance, when the build left it. Bundles produced elsewhere
	// have no sidecar and verify just as well.
	if report, serr := bundler.ReadSidecar(bundlePath); serr == nil {
		logger.Debug().
			Str("runId", report.RunID).
			Time("builtAt", report.StartedAt).
			Msg("verifying build")
	}

	exe, err := bundler.ExecutablePath(bundlePath)
	if err != nil {
		return model.WrapCLIError(model.ExitVerify,
			fmt.Sprintf("bundle %s has no launchable executable", bundlePath), err)
	}

	// Endpoint settings: manifest values when a project is resolvable,
	// built-in defaults otherwise (--bundle works outside any project).
	settings := manifest.VerifySettings{
		Host: manifest.DefaultVerifyHost,
		Port: manifest.DefaultVerifyPort,
	}
	if proj != nil {
		settings = proj.Manifest.Verify
	}

	host := settings.Host
	port := settings.Port
	args := append([]string(nil), settings.Args...)
	timeout := settings.Timeout()

	if cmd.Flags().Changed("port") {
		port = flags.port
		if port < 0 || port > 65535 {
			return model.NewCLIError(model.ExitGeneralError,
				fmt.Sprintf("invalid port %d", port))
		}
		if port == 0 {
			free, ferr := probe.FreePort()
			if ferr != nil {
				return model.WrapCLIError(model.ExitVerify, "no free port available", ferr)
			}
			port = free
			args = append(args, "--port", strconv.Itoa(port))
		}
	}
	if flags.timeout > 0 {
		timeout = flags.timeout
	}

	logger.Debug().
		Str("executable", exe).
		Str("host", host).
		Int("port", port).
		Dur("timeout", timeout).
		Msg("launching bundle")

	// Launch the app. Its own output is diagnostics, so it goes to
	// stderr regardless of output mode.
	app := exec.CommandContext(ctx, exe, args...)
	app.Dir = bundlePath
	app.Stdout = errOut
	app.Stderr = errOut
	started := time.Now()
	if err := app.Start(); err != nil {
		return model.WrapCLIError(model.ExitVerify,
			fmt.Sprintf("failed to launch %s", exe), err)
	}

	// The readiness wait aborts the moment the app dies: the exit
	// cancels waitCtx, which interrupts the TCP poll.
	waitCtx, cancelWait := context.WithCancel(ctx)
	defer cancelWait()
	appDone := make(chan error, 1)
	go func() {
		appDone <- app.Wait()
		cancelWait()
	}()

	spinner := newSpinner(errOut, fmt.Sprintf("waiting for %s:%d", host, port))
	spinnerDone := make(chan struct{})
	go func() {
		tick := time.NewTicker(120 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-spinnerDone:
				return
			case <-tick.C:
				_ = spinner.Add(1)
			}
		}
	}()

	probeErr := probe.WaitTCP(waitCtx, host, port, timeout)
	close(spinnerDone)
	_ = spinner.Finish()

	if probeErr != nil {
		if ctx.Err() != nil {
			return model.WrapCLIError(model.ExitGeneralError, "verify interrupted", ctx.Err())
		}
		select {
		case waitErr := <-appDone:
			detail := probeErr
			if waitErr != nil {
				detail = waitErr
			}
			return model.WrapCLIError(model.ExitVerify,
				"app exited before accepting connections", detail)
		default:
			_ = app.Process.Kill()
			<-appDone
			return model.WrapCLIError(model.ExitVerify,
				fmt.Sprintf("app did not accept connections on %s:%d within %s", host, port, timeout), probeErr)
		}
	}

	elapsed := time.Since(started)
	logger.Debug().Dur("elapsed", elapsed).Msg("endpoint ready")

	// Readiness proven; shut the app down again, gently first.
	_ = app.Process.Signal(os.Interrupt)
	select {
	case <-appDone:
	case <-time.After(shutdownGrace):
		_ = app.Process.Kill()
		<-appDone
	}

	printVerifyResult(cmd.OutOrStdout(), bundlePath, host, port, elapsed)
	return nil
}

// newSpinner builds the wait indicator. It stays invisible in CI and on
// non-terminal writers so logs are not littered with control sequences.
func newSpinner(w io.Writer, desc string) *progressbar.ProgressBar {
	visible := os.Getenv("CI") != "true"
	if f, ok := w.(*os.File); !ok || !isatty.IsTerminal(f.Fd()) {
		visible = false
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionClearOnFinish(),
	)
}

// printVerifyResult outputs the verify result in text or JSON format.
func printVerifyResult(out io.Writer, bundlePath, host string, port int, elapsed time.Duration) {
	if IsJSONOutput() {
		result := map[string]interface{}{
			"bundle":    bundlePath,
			"host":      host,
			"port":      port,
			"ok":        true,
			"elapsedMs": elapsed.Milliseconds(),
		}
		data, _ := json.MarshalIndent(result, "", "  ")
		fmt.Fprintln(out, string(data))
		return
	}

	fmt.Fprintf(out, "Verified %s\n", bundlePath)
	fmt.Fprintf(out, "  Endpoint:  %s:%d\n", host, port)
	fmt.Fprintf(out, "  Ready in:  %s\n", elapsed.Round(time.Millisecond))
}
