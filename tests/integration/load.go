package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

const (
	baseURL         = "http://localhost:8080/api/v1"
	numAccounts     = 100        // Number of accounts to create
	numTransactions = 10000      // Total number of transactions
	maxConcurrency  = 200        // Maximum number of concurrent requests
	initialBalance  = 100000     // Initial balance for each account, FCFA
	maxAmount       = 10000      // Maximum transaction amount, FCFA
	minAmount       = 1000       // Policy floor; smaller amounts are rejected
	successColor    = "\033[32m" // Green
	errorColor      = "\033[31m" // Red
	infoColor       = "\033[34m" // Blue
	resetColor      = "\033[0m"  // Reset color
)

type account struct {
	ID      string `json:"id"`
	Number  string `json:"number"`
	Balance string `json:"balance"`
	Status  string `json:"status"`
}

type transaction struct {
	ID        string `json:"id"`
	AccountID string `json:"account_id"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount"`
}

// every response comes wrapped in the API envelope
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	rand.Seed(time.Now().UnixNano())

	fmt.Printf("%sstarting a heavy load test with %d accounts and %d transactions%s\n",
		infoColor, numAccounts, numTransactions, resetColor)

	accounts := createAccounts(numAccounts)
	fmt.Printf("%sCreated %d accounts%s\n", successColor, len(accounts), resetColor)
	if len(accounts) == 0 {
		fmt.Printf("%sno accounts created, aborting%s\n", errorColor, resetColor)
		return
	}

	// Create semaphore for limiting concurrency
	sem := make(chan struct{}, maxConcurrency)
	var wg sync.WaitGroup

	startTime := time.Now()
	successCount := 0
	errorCount := 0
	var successMutex sync.Mutex

	fmt.Printf("%slaunching %d transactions with max concurrency of %d%s\n",
		infoColor, numTransactions, maxConcurrency, resetColor)

	for i := 0; i < numTransactions; i++ {
		wg.Add(1)
		sem <- struct{}{} // Acquire semaphore

		go func(txNum int) {
			defer wg.Done()
			defer func() { <-sem }() // Release semaphore

			acc := accounts[rand.Intn(len(accounts))]

			kind := "deposit"
			if rand.Intn(2) == 1 {
				kind = "withdraw"
			}

			// Random whole-FCFA amount at or above the policy floor
			amount := minAmount + rand.Intn(maxAmount-minAmount+1)

			txID, err := createTransaction(acc.ID, kind, amount)

			successMutex.Lock()
			if err != nil {
				errorCount++
				if txNum%100 == 0 { // Only log some failures to avoid overwhelming output
					fmt.Printf("%sTransaction failed: %v%s\n", errorColor, err, resetColor)
				}
			} else {
				successCount++
				if txNum%500 == 0 { // Log every 500th successful transaction
					fmt.Printf("%sTransaction %d: Created %s of %d on account %s (txID: %s)%s\n",
						successColor, txNum, kind, amount, acc.ID, txID, resetColor)
				}
			}
			successMutex.Unlock()
		}(i)
	}

	wg.Wait()
	duration := time.Since(startTime)

	fmt.Printf("\n%s=== heavy load Test Results ===%s\n", infoColor, resetColor)
	fmt.Printf("Total number of transactions: %d\n", numTransactions)
	fmt.Printf("Successful: %s%d (%.1f%%)%s\n",
		successColor, successCount, float64(successCount)/float64(numTransactions)*100, resetColor)
	fmt.Printf("Failed: %s%d (%.1f%%)%s\n",
		errorColor, errorCount, float64(errorCount)/float64(numTransactions)*100, resetColor)
	fmt.Printf("Duration: %.2f seconds\n", duration.Seconds())
	fmt.Printf("Throughput: %.2f transactions/second\n", float64(numTransactions)/duration.Seconds())

	fmt.Printf("\n%sChecking final account balances...%s\n", infoColor, resetColor)
	checkAccountsAndTransactions(accounts)
}

// adminRequest sends a JSON request carrying the admin actor headers
func adminRequest(method, url string, body interface{}) (*envelope, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-Id", "load-test")
	req.Header.Set("X-Actor-Role", "admin")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to decode response, status %d: %s", resp.StatusCode, string(raw))
	}
	if !env.Success {
		if env.Error != nil {
			return &env, fmt.Errorf("%s: %s", env.Error.Code, env.Error.Message)
		}
		return &env, fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return &env, nil
}

// createAccounts opens the specified number of checking accounts
func createAccounts(count int) []account {
	accounts := make([]account, 0, count)

	for i := 0; i < count; i++ {
		reqBody := map[string]interface{}{
			"type":            "checking",
			"currency":        "FCFA",
			"initial_balance": initialBalance,
			"client": map[string]string{
				"full_name": fmt.Sprintf("Load Client %04d", i),
				"email":     fmt.Sprintf("load-%04d@example.com", i),
				"telephone": fmt.Sprintf("+2217712%05d", i),
			},
		}

		env, err := adminRequest(http.MethodPost, baseURL+"/accounts", reqBody)
		if err != nil {
			fmt.Printf("%sFailed to create account: %v%s\n", errorColor, err, resetColor)
			continue
		}

		var acc account
		if err := json.Unmarshal(env.Data, &acc); err != nil {
			fmt.Printf("%sFailed to decode account: %v%s\n", errorColor, err, resetColor)
			continue
		}

		accounts = append(accounts, acc)
		if i%10 == 0 || i == count-1 {
			fmt.Printf("%screated account %d/%d: %s with balance %s%s\n",
				successColor, i+1, count, acc.Number, acc.Balance, resetColor)
		}
	}

	return accounts
}

// createTransaction sends one deposit or withdrawal
func createTransaction(accountID, kind string, amount int) (string, error) {
	reqBody := map[string]interface{}{
		"account_id": accountID,
		"amount":     amount,
	}

	env, err := adminRequest(http.MethodPost, baseURL+"/transactions/"+kind, reqBody)
	if err != nil {
		return "", err
	}

	var tx transaction
	if err := json.Unmarshal(env.Data, &tx); err != nil {
		return "", fmt.Errorf("failed to decode transaction: %w", err)
	}
	return tx.ID, nil
}

// getAccount retrieves account information
func getAccount(accountID string) (*account, error) {
	env, err := adminRequest(http.MethodGet, fmt.Sprintf("%s/accounts/%s", baseURL, accountID), nil)
	if err != nil {
		return nil, err
	}
	var acc account
	if err := json.Unmarshal(env.Data, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return &acc, nil
}

// getTransactions retrieves transaction history for an account
func getTransactions(accountID string) ([]transaction, error) {
	env, err := adminRequest(http.MethodGet, fmt.Sprintf("%s/accounts/%s/transactions", baseURL, accountID), nil)
	if err != nil {
		return nil, err
	}
	var transactions []transaction
	if err := json.Unmarshal(env.Data, &transactions); err != nil {
		return nil, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return transactions, nil
}

// checkAccountsAndTransactions checks the final state of accounts and their transactions
func checkAccountsAndTransactions(accounts []account) {
	sampleSize := min(10, len(accounts)) // Check up to 10 accounts
	sampledAccounts := make([]account, sampleSize)

	for i := 0; i < sampleSize; i++ {
		sampledAccounts[i] = accounts[rand.Intn(len(accounts))]
	}

	for i, original := range sampledAccounts {
		acc, err := getAccount(original.ID)
		if err != nil {
			fmt.Printf("%sError retrieving account %s: %v%s\n",
				errorColor, original.ID, err, resetColor)
			continue
		}

		transactions, err := getTransactions(acc.ID)
		if err != nil {
			fmt.Printf("%sError retrieving transactions for account %s: %v%s\n",
				errorColor, acc.ID, err, resetColor)
			continue
		}

		depositCount := 0
		withdrawalCount := 0
		for _, tx := range transactions {
			switch tx.Kind {
			case "deposit":
				depositCount++
			case "withdrawal":
				withdrawalCount++
			}
		}

		fmt.Printf("%sAccount %d: %s%s\n", infoColor, i+1, acc.Number, resetColor)
		fmt.Printf("  Original balance: %s, Current balance: %s\n",
			original.Balance, acc.Balance)
		fmt.Printf("  Transactions: %d total (%d deposits, %d withdrawals)\n",
			len(transactions), depositCount, withdrawalCount)
	}
}

// min returns the minimum of two integers
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
