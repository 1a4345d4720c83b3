package ctl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"bizledger/internal/ledger/google"
	"bizledger/internal/log"
)

func newSheetsAuthCommand(a *app) *cobra.Command {
	var (
		clientFile string
		tokenFile  string
		port       int
		timeout    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "sheets-auth",
		Short: "Authorize the sheets backend with a Google account",
		Long: `Run the OAuth consent flow for a desktop OAuth client and save the token
for the sheets backend (GOOGLE_OAUTH_TOKEN_FILE). This is an alternative to a
service account.

The client comes from GOOGLE_OAUTH_CLIENT_JSON or --client-file. The OAuth
client must allow the redirect URI http://localhost:<port>/callback.`,
		Example: `  bizledgerctl sheets-auth --client-file client.json --token-file token.json`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clientJSON := []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
			if len(clientJSON) == 0 {
				if clientFile == "" {
					return errors.New("set GOOGLE_OAUTH_CLIENT_JSON or --client-file")
				}
				var err error
				if clientJSON, err = os.ReadFile(clientFile); err != nil {
					return fmt.Errorf("read client file: %w", err)
				}
			}
			cfg, err := google.OAuthConfig(clientJSON)
			if err != nil {
				return err
			}
			cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
			if err != nil {
				return fmt.Errorf("listen for the OAuth redirect: %w", err)
			}
			state := uuid.NewString()
			codes := make(chan string, 1)
			srv := &http.Server{Handler: callbackRouter(state, codes), ReadHeaderTimeout: 10 * time.Second}
			go func() { _ = srv.Serve(ln) }()
			defer srv.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "Open this URL to authorize:\n%s\n",
				cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

			var code string
			select {
			case code = <-codes:
			case <-ctx.Done():
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return errors.New("authorization timed out")
				}
				return errors.New("interrupted")
			}

			tok, err := cfg.Exchange(ctx, code)
			if err != nil {
				return fmt.Errorf("token exchange: %w", err)
			}
			if err := google.SaveToken(tokenFile, tok); err != nil {
				return err
			}
			a.logger.Info("OAuth token saved", "token_file", tokenFile, log.FieldOperation, "sheets_auth")
			return printJSON(cmd.OutOrStdout(), map[string]string{"token_file": tokenFile})
		},
	}
	tokenDefault := os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")
	if tokenDefault == "" {
		tokenDefault = "token.json"
	}
	cmd.Flags().StringVar(&clientFile, "client-file", os.Getenv("GOOGLE_OAUTH_CLIENT_FILE"), "OAuth client JSON downloaded from the Google Cloud console")
	cmd.Flags().StringVar(&tokenFile, "token-file", tokenDefault, "Where to save the token")
	cmd.Flags().IntVar(&port, "port", 8085, "Local port for the OAuth redirect")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the authorization")
	return cmd
}

// callbackRouter serves the OAuth redirect. The first valid code is sent on
// codes; the state parameter must match.
func callbackRouter(state string, codes chan<- string) http.Handler {
	r := chi.NewRouter()
	r.Get("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			return
		}
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		select {
		case codes <- code:
		default:
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
	})
	return r
}
