package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alexbotov/alidayu/internal/api"
	"github.com/alexbotov/alidayu/internal/audit"
	"github.com/alexbotov/alidayu/internal/auth"
	"github.com/alexbotov/alidayu/internal/database"
	"github.com/alexbotov/alidayu/internal/gatewaysim"
	"github.com/alexbotov/alidayu/internal/log"
	"github.com/alexbotov/alidayu/internal/metrics"
	"github.com/alexbotov/alidayu/internal/rng"
	"github.com/alexbotov/alidayu/pkg/alidayu"
)

func newClient(opts ...alidayu.Option) (*alidayu.Client, error) {
	clientCfg, err := cfg.Gateway.ClientConfig()
	if err != nil {
		return nil, err
	}
	opts = append([]alidayu.Option{alidayu.WithObserver(log.NewCallObserver(logger))}, opts...)
	return alidayu.NewClient(clientCfg, opts...)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the signing relay HTTP service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			m := metrics.New()
			opts := []alidayu.Option{alidayu.WithObserver(m)}

			var auditSvc *audit.Service
			if cfg.Database.DSN != "" {
				db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := db.Migrate(ctx); err != nil {
					return err
				}
				auditSvc = audit.New(db.DB, logger)
				opts = append(opts, alidayu.WithObserver(auditSvc))
			} else {
				logger.Warn("ALIDAYU_DB_DSN is empty, audit trail disabled")
			}

			client, err := newClient(opts...)
			if err != nil {
				return err
			}

			authSvc := auth.New(&cfg.Auth)
			if !authSvc.Enabled() {
				logger.Warn("ALIDAYU_JWT_SECRET is empty, relay API is unauthenticated")
			}

			handler := api.New(client, authSvc, auditSvc, m, logger)
			srv := &http.Server{
				Addr:         ":" + cfg.Server.Port,
				Handler:      handler.SetupRouter(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			logger.Info("relay starting", "endpoint", client.Endpoint(), "app_key", client.AppKey())
			return runServer(ctx, srv)
		},
	}
}

func newSandboxCmd() *cobra.Command {
	var (
		addr    string
		maxSkew time.Duration
	)

	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Run a local gateway simulator accepting the configured credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			clientCfg, err := cfg.Gateway.ClientConfig()
			if err != nil {
				return err
			}

			sim := gatewaysim.New(gatewaysim.Config{
				Apps:     map[string]string{cfg.Gateway.AppKey: cfg.Gateway.AppSecret},
				MaxSkew:  maxSkew,
				Location: clientCfg.Location,
			}, logger)
			sim.RegisterDefaults()

			srv := &http.Server{
				Addr:         addr,
				Handler:      sim.Router(),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}
			logger.Info("gateway simulator starting", "path", gatewaysim.RoutePath)
			return runServer(cmd.Context(), srv)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":9090", "listen address")
	cmd.Flags().DurationVar(&maxSkew, "max-skew", 10*time.Minute, "accepted timestamp skew, 0 disables the check")
	return cmd
}

func newCallCmd() *cobra.Command {
	var (
		method     string
		params     []string
		codeParam  string
		codeLength int
		format     string
		signMethod string
	)

	cmd := &cobra.Command{
		Use:   "call",
		Short: "Sign and send a single gateway call",
		Example: `  alidayu call --method alibaba.aliqin.fc.sms.num.send \
    --param sms_type=normal --param sms_free_sign_name=Acme \
    --param rec_num=13800000000 --param sms_template_code=SMS_585014 \
    --code-param sms_param`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseParams(params)
			if err != nil {
				return err
			}

			if codeParam != "" {
				code, err := rng.New().GenerateDigits(codeLength)
				if err != nil {
					return err
				}
				values[codeParam] = fmt.Sprintf(`{"code":"%s"}`, code)
				fmt.Fprintf(os.Stderr, "generated code: %s\n", code)
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			if format != "" {
				client.SetFormat(alidayu.Format(format))
			}
			if signMethod != "" {
				client.SetSignMethod(alidayu.SignMethod(signMethod))
			}

			res, err := client.Execute(cmd.Context(), alidayu.NewCall(method, values))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res.Body.Interface())
		},
	}

	cmd.Flags().StringVar(&method, "method", "", "remote method name")
	cmd.Flags().StringArrayVar(&params, "param", nil, "request parameter as key=value, repeatable")
	cmd.Flags().StringVar(&codeParam, "code-param", "", `parameter that receives {"code":"<random digits>"}`)
	cmd.Flags().IntVar(&codeLength, "code-length", 6, "number of digits in the generated code")
	cmd.Flags().StringVar(&format, "format", "", "response format override (json or xml)")
	cmd.Flags().StringVar(&signMethod, "sign-method", "", "signature method override (md5 or hmac)")
	cmd.MarkFlagRequired("method")
	return cmd
}

// parseParams turns key=value pairs into a parameter map
func parseParams(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid parameter %q, expected key=value", p)
		}
		out[key] = value
	}
	return out, nil
}

func newTokenCmd() *cobra.Command {
	var subject string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for the relay API",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, claims, err := auth.New(&cfg.Auth).Issue(subject)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "expires: %s\n", claims.Expires.Format(time.RFC3339))
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "", "caller name recorded in the audit trail")
	cmd.MarkFlagRequired("subject")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the audit schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Database.DSN == "" {
				return fmt.Errorf("ALIDAYU_DB_DSN is not set")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := database.New(ctx, cfg.Database.Driver, cfg.Database.DSN)
			if err != nil {
				return err
			}
			defer db.Close()

			if reset {
				logger.Warn("dropping audit tables")
				if err := db.Reset(ctx); err != nil {
					return err
				}
			}
			if err := db.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("schema is up to date")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "drop and recreate all tables")
	return cmd
}
