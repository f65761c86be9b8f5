package gateway

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStaticToken(t *testing.T) {
	token, err := StaticToken("abc").Token(context.Background())
	if err != nil || token != "abc" {
		t.Fatalf("got %q, %v", token, err)
	}
}

func TestRefreshingTokenInitialFetchError(t *testing.T) {
	refresh := func(ctx context.Context) (string, error) {
		return "", errors.New("auth down")
	}
	if _, err := NewRefreshingToken(context.Background(), refresh, time.Minute, zerolog.Nop()); err == nil {
		t.Fatal("expected initial fetch error")
	}
}

func TestRefreshingTokenRenewsAndSurvivesFailure(t *testing.T) {
	var n atomic.Int64
	refresh := func(ctx context.Context) (string, error) {
		switch n.Add(1) {
		case 1:
			return "first", nil
		case 2:
			return "", errors.New("transient")
		default:
			return "renewed", nil
		}
	}
	src, err := NewRefreshingToken(context.Background(), refresh, 10*time.Millisecond, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer src.Stop()

	if token, _ := src.Token(context.Background()); token != "first" {
		t.Fatalf("initial token %q", token)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		token, _ := src.Token(context.Background())
		if token == "renewed" {
			break
		}
		if token != "first" {
			t.Fatalf("failed refresh clobbered the token: %q", token)
		}
		if time.Now().After(deadline) {
			t.Fatal("token never renewed")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
