package collect

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultLanguage is the content language every query is restricted to.
const DefaultLanguage = "id"

const queryDateLayout = "2006-01-02"

var handleRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// AccountQuery is a search for posts authored by one account.
type AccountQuery struct {
	Account  string
	Language string
	Range    DateRange
}

// String renders the query in upstream search syntax.
func (q AccountQuery) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "from:%s lang:%s", q.Account, q.Language)
	if q.Range.IsSet() {
		fmt.Fprintf(&b, " since:%s until:%s",
			q.Range.Start.Format(queryDateLayout),
			q.Range.End.Format(queryDateLayout))
	}
	return b.String()
}

// normalizeAccount strips surrounding space and a leading "@".
func normalizeAccount(account string) string {
	return strings.TrimPrefix(strings.TrimSpace(account), "@")
}

// accountKey identifies an account for de-duplication; handles are
// case-insensitive upstream.
func accountKey(account string) string {
	return strings.ToLower(normalizeAccount(account))
}

// BuildQuery validates account and builds its query. A leading "@" is accepted.
func BuildQuery(account, language string, r DateRange) (AccountQuery, error) {
	acc := normalizeAccount(account)
	if acc == "" {
		return AccountQuery{}, fmt.Errorf("%w: empty account identifier", ErrInvalidInput)
	}
	if !handleRe.MatchString(acc) {
		return AccountQuery{}, fmt.Errorf("%w: account identifier %q", ErrInvalidInput, account)
	}
	if language == "" {
		language = DefaultLanguage
	}
	return AccountQuery{Account: acc, Language: language, Range: r}, nil
}
