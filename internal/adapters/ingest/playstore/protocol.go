package playstore

import (
	"bytes"
	"encoding/json"
	"net/url"
	"time"

	perr "playreviews/internal/platform/errors"

	"github.com/tidwall/gjson"
)

const (
	rpcReviews = "UsvDTd"
	rpcPath    = "/_/PlayStoreUi/data/batchexecute"

	// MaxPerRequest is the most reviews one RPC call returns
	MaxPerRequest = 199

	// SortNewest orders reviews newest first
	SortNewest = 2
	// SortRating orders by rating
	SortRating = 3
	// SortMostRelevant is the store default
	SortMostRelevant = 1
)

// Review is one review as the store returns it
type Review struct {
	ID           string
	UserName     *string
	Content      *string
	Score        int
	At           *time.Time
	ThumbsUp     int
	ReplyContent *string
	RepliedAt    *time.Time
	AppVersion   *string
}

// reviewsBody builds the form body of a reviews RPC call
func reviewsBody(appID string, sort, count int, token string) string {
	tok := "null"
	if token != "" {
		b, _ := json.Marshal(token)
		tok = string(b)
	}
	app, _ := json.Marshal(appID)
	inner := "[null,null,[2," + itoa(sort) + ",[" + itoa(count) + ",null," + tok + "],null,[]],[" + string(app) + ",7]]"

	freq, _ := json.Marshal([]any{[]any{[]any{rpcReviews, inner, nil, "generic"}}})
	return url.Values{"f.req": {string(freq)}}.Encode()
}

// parseReviews decodes a batchexecute response into reviews and the next page token
func parseReviews(body []byte) ([]Review, string, error) {
	body = bytes.TrimSpace(body)
	body = bytes.TrimPrefix(body, []byte(")]}'"))
	body = bytes.TrimSpace(body)
	if !gjson.ValidBytes(body) {
		return nil, "", perr.New(perr.ErrorCodeDecode, "playstore: response is not JSON")
	}

	payload := gjson.GetBytes(body, "0.2")
	if payload.Type == gjson.Null || !payload.Exists() {
		// the store answers an exhausted or unknown listing with a null payload
		return nil, "", nil
	}
	if payload.Type != gjson.String || !gjson.Valid(payload.Str) {
		return nil, "", perr.New(perr.ErrorCodeDecode, "playstore: unexpected rpc payload")
	}
	inner := gjson.Parse(payload.Str)

	var out []Review
	for _, it := range inner.Get("0").Array() {
		if !it.IsArray() {
			continue
		}
		out = append(out, reviewFrom(it))
	}
	return out, nextToken(inner), nil
}

// nextToken is the last element of the second to last entry, when it is a string
func nextToken(inner gjson.Result) string {
	top := inner.Array()
	if len(top) < 2 || !top[len(top)-2].IsArray() {
		return ""
	}
	meta := top[len(top)-2].Array()
	if len(meta) == 0 {
		return ""
	}
	if last := meta[len(meta)-1]; last.Type == gjson.String {
		return last.Str
	}
	return ""
}

func reviewFrom(it gjson.Result) Review {
	return Review{
		ID:           it.Get("0").String(),
		UserName:     optString(it.Get("1.0")),
		Content:      optString(it.Get("4")),
		Score:        int(it.Get("2").Int()),
		At:           optUnix(it.Get("5.0")),
		ThumbsUp:     int(it.Get("6").Int()),
		ReplyContent: optString(it.Get("7.1")),
		RepliedAt:    optUnix(it.Get("7.2.0")),
		AppVersion:   optString(it.Get("10")),
	}
}

func optString(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := r.Str
	return &s
}

func optUnix(r gjson.Result) *time.Time {
	if r.Type != gjson.Number || r.Int() <= 0 {
		return nil
	}
	t := time.Unix(r.Int(), 0).UTC()
	return &t
}
