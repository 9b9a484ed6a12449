package twitter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anatolykoptev/go-tweetharvest/collect"
)

// parseSearchPage parses one SearchTimeline response into a page of raw items
// and the bottom cursor.
func parseSearchPage(body []byte) (collect.Page, error) {
	var raw struct {
		Data struct {
			SearchByRawQuery struct {
				SearchTimeline struct {
					Timeline timelineObj `json:"timeline"`
				} `json:"search_timeline"`
			} `json:"search_by_raw_query"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return collect.Page{}, fmt.Errorf("unmarshal search timeline: %w", err)
	}
	items, tweets, cursor := extractSearchItems(raw.Data.SearchByRawQuery.SearchTimeline.Timeline)

	// Search keeps handing out bottom cursors past the last result; a page
	// without tweet entries is the end. Entries that fail to parse still count.
	if tweets == 0 {
		cursor = ""
	}
	return collect.Page{Items: items, Cursor: cursor}, nil
}

// --- Timeline types ---

type timelineObj struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
	Entry   *timelineEntry  `json:"entry"`
}

type timelineEntry struct {
	EntryID   string          `json:"entryId"`
	SortIndex string          `json:"sortIndex"`
	Content   timelineContent `json:"content"`
}

type timelineContent struct {
	EntryType   string          `json:"entryType"`
	TypeName    string          `json:"__typename"`
	ItemContent json.RawMessage `json:"itemContent"`
	Value       string          `json:"value"`
	CursorType  string          `json:"cursorType"`
}

type userResult struct {
	TypeName string `json:"__typename"`
	RestID   string `json:"rest_id"`
	Core     struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"core"`
	Avatar struct {
		ImageURL string `json:"image_url"`
	} `json:"avatar"`
	Legacy struct {
		Name            string `json:"name"`
		ScreenName      string `json:"screen_name"`
		ProfileImageURL string `json:"profile_image_url_https"`
	} `json:"legacy"`
}

type tweetResult struct {
	TypeName string       `json:"__typename"`
	RestID   string       `json:"rest_id"`
	Tweet    *tweetResult `json:"tweet"` // set on TweetWithVisibilityResults
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	NoteTweet struct {
		NoteTweetResults struct {
			Result struct {
				Text string `json:"text"`
			} `json:"result"`
		} `json:"note_tweet_results"`
	} `json:"note_tweet"`
	Legacy struct {
		FullText      string `json:"full_text"`
		CreatedAt     string `json:"created_at"`
		FavoriteCount int    `json:"favorite_count"`
		RetweetCount  int    `json:"retweet_count"`
	} `json:"legacy"`
}

// --- Extraction helpers ---

// extractSearchItems returns the parsed items, the number of tweet entries
// seen (parsed or not) and the bottom cursor.
func extractSearchItems(tl timelineObj) ([]collect.Item, int, string) {
	var items []collect.Item
	var tweets int
	var nextCursor string

	for _, instruction := range tl.Instructions {
		entries := instruction.Entries
		if instruction.Entry != nil {
			entries = append(entries, *instruction.Entry)
		}
		for _, entry := range entries {
			if entry.Content.EntryType == "TimelineTimelineCursor" || entry.Content.TypeName == "TimelineTimelineCursor" {
				if entry.Content.CursorType == "Bottom" || strings.Contains(entry.EntryID, "cursor-bottom") {
					nextCursor = entry.Content.Value
				}
				continue
			}
			if entry.Content.ItemContent == nil {
				continue
			}
			var item struct {
				TypeName     string `json:"__typename"`
				TweetResults struct {
					Result tweetResult `json:"result"`
				} `json:"tweet_results"`
			}
			if err := json.Unmarshal(entry.Content.ItemContent, &item); err != nil {
				continue
			}
			if item.TypeName != "TimelineTweet" {
				continue
			}
			tweets++
			it, err := parseTweetResult(item.TweetResults.Result)
			if err != nil {
				slog.Debug("skip tweet parse error", slog.String("entry", entry.EntryID), slog.Any("error", err))
				continue
			}
			items = append(items, it)
		}
	}
	return items, tweets, nextCursor
}

func parseTweetResult(r tweetResult) (collect.Item, error) {
	if r.TypeName == "TweetWithVisibilityResults" && r.Tweet != nil {
		r = *r.Tweet
	}
	if r.TypeName == "TweetTombstone" || r.TypeName == "TweetUnavailable" {
		return collect.Item{}, fmt.Errorf("tweet unavailable (%s)", r.TypeName)
	}
	if r.RestID == "" {
		return collect.Item{}, fmt.Errorf("empty tweet rest_id (typename=%s)", r.TypeName)
	}

	u := r.Core.UserResults.Result
	text := r.Legacy.FullText
	if long := r.NoteTweet.NoteTweetResults.Result.Text; long != "" {
		text = long
	}

	return collect.Item{
		ID:              r.RestID,
		AuthorName:      firstNonEmpty(u.Core.Name, u.Legacy.Name),
		AuthorHandle:    firstNonEmpty(u.Core.ScreenName, u.Legacy.ScreenName),
		AuthorAvatarURL: firstNonEmpty(u.Avatar.ImageURL, u.Legacy.ProfileImageURL),
		Text:            text,
		CreatedAt:       r.Legacy.CreatedAt,
		RetweetCount:    r.Legacy.RetweetCount,
		FavoriteCount:   r.Legacy.FavoriteCount,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
