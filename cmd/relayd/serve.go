package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/AlexZinkM/wallet-relay/internal/api"
	"github.com/AlexZinkM/wallet-relay/internal/approval"
	"github.com/AlexZinkM/wallet-relay/internal/bridge"
	"github.com/AlexZinkM/wallet-relay/internal/client"
	"github.com/AlexZinkM/wallet-relay/internal/config"
	"github.com/AlexZinkM/wallet-relay/internal/consent"
	"github.com/AlexZinkM/wallet-relay/internal/crypto"
	"github.com/AlexZinkM/wallet-relay/internal/handler"
	wlog "github.com/AlexZinkM/wallet-relay/internal/log"
	"github.com/AlexZinkM/wallet-relay/internal/pending"
	"github.com/AlexZinkM/wallet-relay/internal/relay"
	"github.com/AlexZinkM/wallet-relay/internal/session"
	"github.com/AlexZinkM/wallet-relay/internal/storage"
	"github.com/AlexZinkM/wallet-relay/internal/vault"
	"github.com/AlexZinkM/wallet-relay/solana"
)

const shutdownTimeout = 10 * time.Second

var unlockOnStart bool

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Runs the relay daemon.",
		Long:  `Serves the page bridge and the loopback approval API until interrupted.`,
		RunE:  runServe,
	}
	cmd.Flags().BoolVar(&unlockOnStart, "unlock", false, "prompt for the vault passphrase of AUTH0_USER_ID on start")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) (err error) {
	if len(args) != 0 {
		return fmt.Errorf("trailing args detected")
	}
	cmd.SilenceUsage = true

	log, logCloser, err := bootstrap()
	if err != nil {
		return err
	}
	defer logCloser.Close()
	cfg := config.Get()

	db, err := storage.Open(config.GetStoreBackend(), config.GetStorePath())
	if err != nil {
		return err
	}
	store := consent.New(log, db)

	table, err := pending.New(log, config.GetApprovalTimeout(), cfg.ResolvedCacheSize)
	if err != nil {
		store.Close()
		_ = db.Close()
		return err
	}
	board := approval.NewBoard(log, config.GetApprovalURL())
	r := relay.New(log, store, table, board, relay.WithValidator(solana.Validator{}))
	sess := session.New(log)

	defer func() {
		var result *multierror.Error
		if err != nil {
			result = multierror.Append(result, err)
		}
		r.Close()
		sess.Lock()
		store.Close()
		if cerr := db.Close(); cerr != nil {
			result = multierror.Append(result, fmt.Errorf("failed to close consent store: %w", cerr))
		}
		err = result.ErrorOrNil()
	}()

	if unlockOnStart {
		if err := unlock(sess, cfg.Auth0UserID); err != nil {
			return err
		}
	}

	profile := client.NewProfileClient(config.GetProfileBaseURL(), cfg.ProfileTimeout)
	router, err := api.SetupRouter(log, config.GetApprovalURL(), api.Handlers{
		Bridge:     bridge.NewServer(log, r),
		Approval:   handler.NewApprovalHandler(r, board),
		Connection: handler.NewConnectionHandler(store),
		Session:    handler.NewSessionHandler(sess, crypto.DefaultKDF),
		Account:    handler.NewAccountHandler(log, vault.New(log, profile), sess),
	})
	if err != nil {
		return err
	}

	return serve(log, config.GetListenAddr(), router)
}

func serve(log wlog.Logger, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infof("relay listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func unlock(sess *session.Session, identity string) error {
	if identity == "" {
		return errors.New("AUTH0_USER_ID is required to unlock on start")
	}
	key, err := promptKey(identity, "Vault passphrase: ")
	if err != nil {
		return err
	}
	defer clear(key)
	return sess.Unlock(identity, key)
}

// promptKey reads a passphrase and derives the vault key of identity
func promptKey(identity, prompt string) ([]byte, error) {
	password, err := config.ReadPassword(prompt)
	if err != nil {
		return nil, err
	}
	defer clear(password)
	return crypto.DefaultKDF.DeriveKey(password, []byte(identity))
}
