package cli

import (
	"context"
	"fmt"
	"os"
)

// Register creates an account and starts the sync engine for the new
// session.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.remote.Register(ctx, email, password); err != nil {
		fmt.Println("Registration failed:", err)
		return err
	}

	fmt.Println("Registered as", email)
	return a.startSession(ctx)
}

// Login authenticates and starts the sync engine.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	if err := a.remote.Login(ctx, email, password); err != nil {
		fmt.Println("Login failed:", err)
		return err
	}

	fmt.Println("Logged in as", email)
	return a.startSession(ctx)
}

func (a *App) startSession(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		fmt.Println("Failed to start sync engine:", err)
		return err
	}
	a.startEventPrinter()
	a.engine.SyncNow()
	return nil
}

// Logout stops the engine and drops the session. Local documents and
// tombstones stay on disk.
func (a *App) Logout(ctx context.Context) error {
	a.engine.Stop(ctx)
	a.stopEventPrinter()
	a.remote.Logout()
	fmt.Println("Logged out")
	return nil
}
