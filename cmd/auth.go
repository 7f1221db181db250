package main

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/desertthunder/scrapify/internal/server"
	"github.com/desertthunder/scrapify/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// Auth performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization, and
// stores the exchanged tokens in the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.spotifyService()
	if err != nil {
		return err
	}

	oauthConfig := svc.OAuthConfig()
	addr, err := server.CallbackAddr(oauthConfig.RedirectURL)
	if err != nil {
		return err
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(oauthConfig, state)
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	if err := r.promptAuthorization(svc.AuthURL(state), cmd.Bool("no-browser")); err != nil {
		ln.Close()
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}
	if err := r.writeLine(r.palette.Help(fmt.Sprintf("Waiting for authorization (%s timeout)...", timeout))); err != nil {
		ln.Close()
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := server.AwaitToken(waitCtx, ln, router, handler.Result(), r.logger)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return err
	}

	if err := r.writeLine(r.palette.OK("✓ Authorization successful")); err != nil {
		return err
	}
	return r.writePlain("✓ Tokens saved to %s\n", r.configPath)
}

// promptAuthorization opens authURL in the browser, or prints it when noBrowser is set or the
// browser cannot be launched.
func (r *Runner) promptAuthorization(authURL string, noBrowser bool) error {
	if noBrowser {
		return r.writePlain("Open this URL in your browser:\n%s\n\n", authURL)
	}

	if err := r.writeLine(r.palette.Title("→ Opening browser for Spotify authorization...")); err != nil {
		return err
	}
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		if err := r.writeLine(r.palette.Warn("⚠ Could not open browser automatically.")); err != nil {
			return err
		}
		return r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	return nil
}
