package normalize

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-carrier-billing/core"
)

// Unified field names the mapping tables target.
const (
	FieldSubscriptionID    = "subscription_id"
	FieldStatus            = "status"
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
	FieldFrequency         = "frequency"
	FieldMSISDN            = "msisdn"
	FieldACR               = "acr"
	FieldCustomerID        = "customer_id"
	FieldTransactionID     = "transaction_id"
	FieldPINReference      = "pin_reference"
	FieldEligible          = "eligible"
	FieldEligibilityReason = "eligibility_reason"
)

// FieldRule resolves one unified field from a raw operator payload. Exactly
// one of Source, Constant, or Transform is set.
type FieldRule struct {
	// Source names the raw payload key to copy verbatim.
	Source string
	// Constant overrides the payload entirely ("always report this currency").
	Constant any
	// Transform derives the value from the whole raw payload.
	Transform func(raw map[string]any) any
}

func (r FieldRule) resolve(raw map[string]any) (any, bool) {
	switch {
	case r.Transform != nil:
		value := r.Transform(raw)
		return value, value != nil
	case r.Constant != nil:
		return r.Constant, true
	case r.Source != "":
		value, ok := lookupField(raw, r.Source)
		return value, ok
	default:
		return nil, false
	}
}

// StatusTable maps one operator family's raw status literals to the unified
// vocabulary. Keys are compared lowercase and trimmed.
type StatusTable map[string]core.UnifiedStatus

// Table holds one operator's field mapping and names the status family its
// literals belong to.
type Table struct {
	OperatorCode string
	StatusFamily string
	Fields       map[string]FieldRule
}

// Normalizer is the lookup-table registry. Translation itself is pure; the
// registry only exists so operator tables can be added at assembly time.
type Normalizer struct {
	mu       sync.RWMutex
	tables   map[string]Table
	families map[string]StatusTable
}

func New() *Normalizer {
	n := &Normalizer{
		tables:   map[string]Table{},
		families: map[string]StatusTable{},
	}
	for family, table := range builtinStatusFamilies() {
		n.families[family] = table
	}
	for _, table := range builtinTables() {
		n.tables[table.OperatorCode] = table
	}
	return n
}

func (n *Normalizer) RegisterTable(table Table) {
	code := core.NormalizeOperatorCode(table.OperatorCode)
	if code == "" {
		return
	}
	table.OperatorCode = code
	n.mu.Lock()
	n.tables[code] = table
	n.mu.Unlock()
}

func (n *Normalizer) RegisterStatusFamily(family string, table StatusTable) {
	family = strings.TrimSpace(strings.ToLower(family))
	if family == "" {
		return
	}
	n.mu.Lock()
	n.families[family] = table
	n.mu.Unlock()
}

func (n *Normalizer) lookupTable(code string) (Table, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	table, ok := n.tables[core.NormalizeOperatorCode(code)]
	return table, ok
}

// Status translates one raw status literal through the family sub-table.
// Unmapped literals come back as unknown, never as an error.
func (n *Normalizer) Status(family string, raw string) core.UnifiedStatus {
	family = strings.TrimSpace(strings.ToLower(family))
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return core.StatusUnknown
	}
	n.mu.RLock()
	table, ok := n.families[family]
	if !ok {
		table = n.families[FamilyDefault]
	}
	n.mu.RUnlock()
	if status, ok := table[raw]; ok {
		return status
	}
	return core.StatusUnknown
}

// StatusForOperator resolves the operator's family first, then translates.
func (n *Normalizer) StatusForOperator(operatorCode string, raw string) core.UnifiedStatus {
	family := FamilyDefault
	if table, ok := n.lookupTable(operatorCode); ok && table.StatusFamily != "" {
		family = table.StatusFamily
	}
	return n.Status(family, raw)
}

// Response translates a raw operator payload into the unified data shape.
// The second return is true when no table exists for the operator and the
// generic passthrough mapping was used.
func (n *Normalizer) Response(operatorCode string, raw map[string]any) (core.ResultData, bool) {
	table, ok := n.lookupTable(operatorCode)
	if !ok {
		return n.passthrough(raw), true
	}

	data := core.ResultData{Extra: map[string]any{}}
	consumed := map[string]struct{}{}
	for field, rule := range table.Fields {
		value, found := rule.resolve(raw)
		if !found {
			continue
		}
		if rule.Source != "" {
			// Dotted paths consume their whole top-level object.
			consumed[strings.SplitN(rule.Source, ".", 2)[0]] = struct{}{}
		}
		assignField(&data, field, value, n, table.StatusFamily)
	}
	for key, value := range raw {
		if _, used := consumed[key]; used {
			continue
		}
		data.Extra[key] = value
	}
	if data.Status == "" {
		data.Status = core.StatusUnknown
	}
	return data, false
}

// passthrough copies well-known keys directly and parks everything else in
// Extra so a brand-new operator degrades instead of failing.
func (n *Normalizer) passthrough(raw map[string]any) core.ResultData {
	data := core.ResultData{Extra: map[string]any{}}
	known := map[string]string{
		"subscription_id": FieldSubscriptionID,
		"subscriptionid":  FieldSubscriptionID,
		"status":          FieldStatus,
		"amount":          FieldAmount,
		"currency":        FieldCurrency,
		"frequency":       FieldFrequency,
		"msisdn":          FieldMSISDN,
		"acr":             FieldACR,
		"transaction_id":  FieldTransactionID,
		"transactionid":   FieldTransactionID,
	}
	for key, value := range raw {
		field, ok := known[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			data.Extra[key] = value
			continue
		}
		assignField(&data, field, value, n, FamilyDefault)
	}
	if data.Status == "" {
		data.Status = core.StatusUnknown
	}
	return data
}

func assignField(data *core.ResultData, field string, value any, n *Normalizer, family string) {
	switch field {
	case FieldSubscriptionID:
		data.SubscriptionID = stringValue(value)
	case FieldStatus:
		data.Status = n.Status(family, stringValue(value))
	case FieldAmount:
		data.Amount = floatValue(value)
	case FieldCurrency:
		data.Currency = strings.ToUpper(stringValue(value))
	case FieldFrequency:
		data.Frequency = stringValue(value)
	case FieldMSISDN:
		data.MSISDN = stringValue(value)
	case FieldACR:
		data.ACR = stringValue(value)
	case FieldCustomerID:
		data.CustomerID = stringValue(value)
	case FieldTransactionID:
		data.TransactionID = stringValue(value)
	case FieldPINReference:
		data.PINReference = stringValue(value)
	case FieldEligible:
		eligible := boolValue(value)
		data.Eligible = &eligible
	case FieldEligibilityReason:
		data.EligibilityReason = stringValue(value)
	default:
		if data.Extra == nil {
			data.Extra = map[string]any{}
		}
		data.Extra[field] = value
	}
}

// lookupField supports dotted paths into nested payload objects.
func lookupField(raw map[string]any, path string) (any, bool) {
	if raw == nil {
		return nil, false
	}
	parts := strings.Split(path, ".")
	var current any = raw
	for _, part := range parts {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringValue(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case bool:
		return strconv.FormatBool(typed)
	case nil:
		return ""
	default:
		return strings.Trim(strings.TrimSpace(toJSONString(typed)), `"`)
	}
}

func toJSONString(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func floatValue(value any) float64 {
	switch typed := value.(type) {
	case float64:
		return typed
	case float32:
		return float64(typed)
	case int:
		return float64(typed)
	case int64:
		return float64(typed)
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func boolValue(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		switch strings.TrimSpace(strings.ToLower(typed)) {
		case "true", "1", "yes", "y", "eligible":
			return true
		default:
			return false
		}
	case float64:
		return typed != 0
	case int:
		return typed != 0
	default:
		return false
	}
}

// TruncateIdentifier derives a short customer id from a long network
// identifier, keeping the first max characters.
func TruncateIdentifier(value string, max int) string {
	value = strings.TrimSpace(value)
	if max <= 0 || len(value) <= max {
		return value
	}
	return value[:max]
}
