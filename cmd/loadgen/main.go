package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rl1809/cart-service/internal/adapter/handler"
	"github.com/rl1809/cart-service/internal/core/domain"
)

const (
	defaultTarget = "http://localhost:8080"
	productID     = "loadgen-item"
	totalRequests = 50
	concurrency   = 25
)

// loadgen fires concurrent AddItem calls for one fresh user and compares
// the final quantity with the number of successful adds. Without
// SERIALIZE_USER_WRITES on the server some adds are expected to be lost.
func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	target := os.Getenv("LOADGEN_TARGET")
	if target == "" {
		target = defaultTarget
	}
	userID := "loadgen-" + uuid.NewString()
	client := &http.Client{Timeout: 10 * time.Second}
	ctx := context.Background()

	var successCount, failCount atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		g.Go(func() error {
			if err := addItem(gctx, client, target, userID); err != nil {
				failCount.Add(1)
				log.Debug().Err(err).Msg("add item failed")
				return nil
			}
			successCount.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	cart, err := getCart(ctx, client, target, userID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read final cart")
	}

	observed := 0
	if i := cart.Find(productID); i >= 0 {
		observed = cart.Lines[i].Quantity
	}
	success := int(successCount.Load())

	fmt.Println("========== CART LOAD TEST RESULTS ==========")
	fmt.Printf("User:              %s\n", userID)
	fmt.Printf("Total Requests:    %d\n", totalRequests)
	fmt.Printf("Successful:        %d\n", success)
	fmt.Printf("Failed:            %d\n", failCount.Load())
	fmt.Printf("Duration:          %v\n", elapsed)
	fmt.Printf("Expected Quantity: %d\n", success)
	fmt.Printf("Observed Quantity: %d\n", observed)
	fmt.Println("============================================")

	if observed == success {
		fmt.Println("PASS: no lost updates")
	} else {
		fmt.Printf("LOST UPDATES: %d adds overwritten (last-write-wins)\n", success-observed)
	}

	if err := clearCart(ctx, client, target, userID); err != nil {
		log.Warn().Err(err).Msg("failed to clear loadgen cart")
	}
}

func addItem(ctx context.Context, client *http.Client, target, userID string) error {
	body, err := json.Marshal(handler.AddItemRequest{ProductID: productID, Quantity: 1})
	if err != nil {
		return err
	}
	_, err = call(ctx, client, http.MethodPost, target+"/api/v1/carts/items", userID, body)
	return err
}

func getCart(ctx context.Context, client *http.Client, target, userID string) (*domain.Cart, error) {
	return call(ctx, client, http.MethodGet, target+"/api/v1/carts", userID, nil)
}

func clearCart(ctx context.Context, client *http.Client, target, userID string) error {
	_, err := call(ctx, client, http.MethodDelete, target+"/api/v1/carts", userID, nil)
	return err
}

func call(ctx context.Context, client *http.Client, method, url, userID string, body []byte) (*domain.Cart, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set(handler.UserIDHeader, userID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out struct {
		Success bool         `json:"success"`
		Message string       `json:"message"`
		Data    *domain.Cart `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, out.Message)
	}
	return out.Data, nil
}
