package tools

import (
	"context"
	"encoding/json"

	"github.com/voiceteller/voiceteller/internal/bank"
	"github.com/voiceteller/voiceteller/internal/logging"
)

// User-safe failure messages. Upstream validation details are deliberately
// not surfaced because the banking API does not discriminate
// insufficient-funds from other rejections.
const (
	msgAccountNotFound = "Account not found."
	msgTransferFailed  = "Transfer failed. Please check account IDs and balance."
)

const defaultTransactionCount = 5

// NewBankingRegistry builds a registry with the three banking tools.
func NewBankingRegistry(client *bank.Client, log *logging.Logger) *Registry {
	reg := NewRegistry()
	reg.Register(&BalanceTool{client: client, log: log.Sub("tools.balance")})
	reg.Register(&TransactionsTool{client: client, log: log.Sub("tools.transactions")})
	reg.Register(&TransferTool{client: client, log: log.Sub("tools.transfer")})
	return reg
}

// BalanceTool looks up the balance of a single account.
type BalanceTool struct {
	client *bank.Client
	log    *logging.Logger
}

func (t *BalanceTool) Name() string { return "getAccountBalance" }

func (t *BalanceTool) Description() string {
	return "Get the current balance for a specific bank account."
}

func (t *BalanceTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"accountId": {"type": "string", "description": "The bank account ID, e.g. acc-1234"}
		},
		"required": ["accountId"]
	}`
}

func (t *BalanceTool) Execute(ctx context.Context, input string) (Result, error) {
	var args struct {
		AccountID string `json:"accountId"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: err.Error()}
	}
	if args.AccountID == "" {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: "accountId is required"}
	}

	account, err := t.client.GetAccount(ctx, args.AccountID)
	if err != nil {
		if bank.IsNotFound(err) {
			return Fail(msgAccountNotFound), nil
		}
		t.log.Warn().Err(err).Str("account", args.AccountID).Msg("balance lookup failed")
		return Fail(err.Error()), nil
	}

	return Ok(map[string]any{
		"accountId": args.AccountID,
		"balance":   account.Balance,
		"nickname":  account.Nickname,
		"currency":  "USD",
	}), nil
}

// TransactionsTool lists recent purchases on an account. The upstream
// reports purchase amounts as positive charges; they are returned here as
// negative debits.
type TransactionsTool struct {
	client *bank.Client
	log    *logging.Logger
}

func (t *TransactionsTool) Name() string { return "getRecentTransactions" }

func (t *TransactionsTool) Description() string {
	return "Get the most recent transactions for a bank account."
}

func (t *TransactionsTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"accountId": {"type": "string", "description": "The bank account ID, e.g. acc-1234"},
			"count": {"type": "integer", "description": "How many transactions to return, default 5"}
		},
		"required": ["accountId"]
	}`
}

func (t *TransactionsTool) Execute(ctx context.Context, input string) (Result, error) {
	var args struct {
		AccountID string `json:"accountId"`
		Count     int    `json:"count"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: err.Error()}
	}
	if args.AccountID == "" {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: "accountId is required"}
	}
	if args.Count < 0 {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: "count must not be negative"}
	}
	count := args.Count
	if count == 0 {
		count = defaultTransactionCount
	}

	purchases, err := t.client.ListPurchases(ctx, args.AccountID)
	if err != nil {
		if bank.IsNotFound(err) {
			return Fail(msgAccountNotFound), nil
		}
		t.log.Warn().Err(err).Str("account", args.AccountID).Msg("transaction listing failed")
		return Fail(err.Error()), nil
	}

	// No upstream pagination; truncation happens here.
	if len(purchases) > count {
		purchases = purchases[:count]
	}

	entries := make([]map[string]any, 0, len(purchases))
	for _, p := range purchases {
		description := p.Description
		if description == "" {
			description = "Merchant " + p.MerchantID
		}
		entries = append(entries, map[string]any{
			"id":          p.ID,
			"date":        p.PurchaseDate,
			"description": description,
			"amount":      -p.Amount,
			"type":        "debit",
		})
	}

	return Ok(map[string]any{
		"accountId":    args.AccountID,
		"transactions": entries,
	}), nil
}

// TransferTool moves funds between two accounts.
type TransferTool struct {
	client *bank.Client
	log    *logging.Logger
}

func (t *TransferTool) Name() string { return "transferFunds" }

func (t *TransferTool) Description() string {
	return "Transfer funds from one bank account to another."
}

func (t *TransferTool) InputSchema() string {
	return `{
		"type": "object",
		"properties": {
			"fromAccountId": {"type": "string", "description": "The source account ID"},
			"toAccountId": {"type": "string", "description": "The destination account ID"},
			"amount": {"type": "number", "description": "The amount to transfer in USD"}
		},
		"required": ["fromAccountId", "toAccountId", "amount"]
	}`
}

func (t *TransferTool) Execute(ctx context.Context, input string) (Result, error) {
	var args struct {
		FromAccountID string  `json:"fromAccountId"`
		ToAccountID   string  `json:"toAccountId"`
		Amount        float64 `json:"amount"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: err.Error()}
	}
	if args.FromAccountID == "" || args.ToAccountID == "" {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: "fromAccountId and toAccountId are required"}
	}
	if args.Amount <= 0 {
		return Result{}, &InvalidArgumentsError{Tool: t.Name(), Reason: "amount must be positive"}
	}

	transfer, err := t.client.CreateTransfer(ctx, args.FromAccountID, bank.TransferRequest{
		Medium:      "balance",
		PayeeID:     args.ToAccountID,
		Amount:      args.Amount,
		Description: "Voice assistant transfer",
	})
	if err != nil {
		switch {
		case bank.IsNotFound(err):
			return Fail(msgAccountNotFound), nil
		case bank.IsValidation(err):
			// Generalized on purpose; see message constants above.
			return Fail(msgTransferFailed), nil
		default:
			t.log.Warn().Err(err).Str("from", args.FromAccountID).Msg("transfer failed")
			return Fail(err.Error()), nil
		}
	}

	return Ok(map[string]any{
		"message":       "Transfer completed successfully.",
		"transactionId": transfer.ID,
	}), nil
}
