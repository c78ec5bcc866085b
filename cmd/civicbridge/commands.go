package main

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Quanta-Naut/CivicBridge-App/internal/api"
	"github.com/Quanta-Naut/CivicBridge-App/internal/cache"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/server"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printRaw pretty-prints a JSON body, falling back to the bytes as-is.
func printRaw(w io.Writer, body json.RawMessage) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		_, err := fmt.Fprintln(w, string(body))
		return err
	}
	return printJSON(w, v)
}

func newServeCmd(opts *options) *cobra.Command {
	var (
		addr    string
		seed    bool
		origins []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API for the app frontend",
		Long: `Serve every operation over a local HTTP API.

The listen address defaults to CIVIC_BRIDGE_ADDR or 127.0.0.1:8765.
Press Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			if seed {
				if err := a.store.Seed(cache.SampleIssues()); err != nil {
					return fmt.Errorf("failed to seed cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "seeded cache with sample issues")
			}

			if addr == "" {
				addr = a.settings.BridgeAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(a.engine, server.Config{AllowOrigins: origins})
			fmt.Fprintf(cmd.OutOrStdout(), "serving on http://%s\n", addr)
			fmt.Fprintln(cmd.OutOrStdout(), "press Ctrl+C to stop")
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from CIVIC_BRIDGE_ADDR)")
	cmd.Flags().BoolVar(&seed, "seed", false, "load sample issues into the cache")
	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "CORS origins to allow (default any)")
	return cmd
}

func newEndpointsCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Show the selected environment and its endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			info := a.engine.Endpoints()
			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, info)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "environment\t%s (%s)\n", info.Environment, info.Tier)
			fmt.Fprintf(tw, "networked\t%t\n", info.Networked)
			fmt.Fprintf(tw, "issues_api\t%s\n", info.Endpoints.IssuesAPI)
			fmt.Fprintf(tw, "auth_base\t%s\n", info.Endpoints.AuthBase)
			fmt.Fprintf(tw, "send_otp\t%s\n", info.Endpoints.SendOTP)
			fmt.Fprintf(tw, "verify_otp\t%s\n", info.Endpoints.VerifyOTP)
			fmt.Fprintf(tw, "firebase_auth\t%s\n", info.Endpoints.FirebaseAuth)
			fmt.Fprintf(tw, "profile\t%s\n", info.Endpoints.Profile)
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newIssuesCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "issues",
		Short: "Fetch or submit remote issues",
	}
	cmd.AddCommand(newIssuesFetchCmd(opts), newIssuesSubmitCmd(opts))
	return cmd
}

func newIssuesFetchCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "List issues from the remote service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			issues, err := a.engine.FetchRemoteIssues(cmd.Context(), false)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return printJSON(out, issues)
			}
			if len(issues) == 0 {
				fmt.Fprintln(out, "no issues")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tSTATUS\tVOUCHES\tTITLE")
			for _, is := range issues {
				vouches := "-"
				if is.VouchCount != nil {
					vouches = strconv.Itoa(*is.VouchCount)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", is.ID, is.Date, is.Status, vouches, is.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// readAttachment returns the base64 encoding of the file at path, or nil
// for an empty path.
func readAttachment(path string) (*string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return &encoded, nil
}

func newIssuesSubmitCmd(opts *options) *cobra.Command {
	var (
		req       issue.CreateRequest
		imagePath string
		audioPath string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new issue to the remote service",
		Long: `Submit a new issue to the remote service.

The issue is submitted anonymously unless a token is available from --token,
CIVIC_AUTH_TOKEN or the saved auth file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if req.ImageData, err = readAttachment(imagePath); err != nil {
				return err
			}
			if req.AudioData, err = readAttachment(audioPath); err != nil {
				return err
			}
			if req.DescriptionMode == "" {
				req.DescriptionMode = issue.ModeText
				if req.AudioData != nil {
					req.DescriptionMode = issue.ModeAudio
				}
			}

			token, err := opts.optionalToken()
			if err != nil {
				return err
			}
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			body, err := a.engine.SubmitIssue(cmd.Context(), req, token)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), json.RawMessage(body))
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Title, "title", "", "issue title (required)")
	f.StringVar(&req.Description, "description", "", "issue description (required)")
	f.Float64Var(&req.Latitude, "lat", 0, "latitude")
	f.Float64Var(&req.Longitude, "lon", 0, "longitude")
	f.StringVar(&req.Category, "category", "other", "issue category")
	f.StringVar(&req.Priority, "priority", "medium", "issue priority")
	f.StringVar(&req.DescriptionMode, "mode", "", "description mode: text or audio (default audio when --audio is set)")
	f.StringVar(&imagePath, "image", "", "JPEG image to attach")
	f.StringVar(&audioPath, "audio", "", "WebM audio recording to attach")
	return cmd
}

func newVouchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "vouch <issue-id>",
		Short: "Vouch for a remote issue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid issue id %q", args[0])
			}
			token, err := opts.requireToken()
			if err != nil {
				return err
			}
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			result, err := a.engine.VouchIssue(cmd.Context(), id, token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			return nil
		},
	}
}

func newOTPCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "otp",
		Short: "Sign in with a one-time password",
	}

	var mobile, kind string
	cmd.PersistentFlags().StringVar(&mobile, "mobile", "", "10-digit mobile number")
	cmd.PersistentFlags().StringVar(&kind, "type", "login", "login or register")

	send := &cobra.Command{
		Use:   "send",
		Short: "Request a one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			body, err := a.engine.SendOTP(cmd.Context(), api.OTPRequest{MobileNumber: mobile, Type: kind})
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), body)
		},
	}

	var code string
	var save bool
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify a one-time password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			body, err := a.engine.VerifyOTP(cmd.Context(), api.OTPRequest{MobileNumber: mobile, OTP: code, Type: kind})
			if err != nil {
				return err
			}
			if err := printRaw(cmd.OutOrStdout(), body); err != nil {
				return err
			}

			if !save {
				return nil
			}
			token, ok := api.TokenFromVerifyResponse(body)
			if !ok {
				return fmt.Errorf("verification did not return a token")
			}
			path, err := api.SaveToken(token, mobile)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "token saved to %s\n", path)
			return nil
		},
	}
	verify.Flags().StringVar(&code, "otp", "", "the code received")
	verify.Flags().BoolVar(&save, "save", false, "save the returned token for later commands")

	cmd.AddCommand(send, verify)
	return cmd
}

func newProfileCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "profile",
		Short: "Show the signed-in user's profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.requireToken()
			if err != nil {
				return err
			}
			a, err := opts.newApp()
			if err != nil {
				return err
			}
			body, err := a.engine.Profile(cmd.Context(), token)
			if err != nil {
				return err
			}
			return printRaw(cmd.OutOrStdout(), body)
		},
	}
}

func newSelfTestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Check connectivity and submission against the remote service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp()
			if err != nil {
				return err
			}

			failed := 0
			for _, r := range a.engine.SelfTest(cmd.Context()) {
				fmt.Fprintln(cmd.OutOrStdout(), r.String())
				if !r.OK {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d self-test(s) failed", failed)
			}
			return nil
		},
	}
}
