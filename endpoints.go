package twitter

import (
	"encoding/json"
	"net/url"
)

const twitterBase = "https://x.com/i/api/graphql"

// BearerToken is the public bearer token of the Twitter web app.
const BearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// searchEndpoint is the operation name, also used as the rate limiter key.
const searchEndpoint = "SearchTimeline"

// searchOperationID is the current GraphQL document ID of SearchTimeline.
const searchOperationID = "AIdc203rPpK_k_2KWSdm7g"

// searchURL builds the full SearchTimeline URL for one page.
func searchURL(query, cursor, product string, count int) string {
	variables := map[string]any{
		"rawQuery":    query,
		"count":       count,
		"querySource": "typed_query",
		"product":     product,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}
	v, _ := json.Marshal(variables)
	f, _ := json.Marshal(searchFeatures())
	ft, _ := json.Marshal(map[string]any{"withArticleRichContentState": false})

	params := url.Values{}
	params.Set("variables", string(v))
	params.Set("features", string(f))
	params.Set("fieldToggles", string(ft))
	return twitterBase + "/" + searchOperationID + "/" + searchEndpoint + "?" + params.Encode()
}

// searchFeatures returns the GraphQL feature flags SearchTimeline expects.
func searchFeatures() map[string]any {
	return map[string]any{
		"articles_preview_enabled":                                                true,
		"c9s_tweet_anatomy_moderator_badge_enabled":                               true,
		"communities_web_enable_tweet_community_results_fetch":                    true,
		"creator_subscriptions_quote_tweet_preview_enabled":                       false,
		"creator_subscriptions_tweet_preview_api_enabled":                         true,
		"freedom_of_speech_not_reach_fetch_enabled":                               true,
		"graphql_is_translatable_rweb_tweet_is_translatable_enabled":              true,
		"longform_notetweets_consumption_enabled":                                 true,
		"longform_notetweets_inline_media_enabled":                                true,
		"longform_notetweets_rich_text_read_enabled":                              true,
		"premium_content_api_read_enabled":                                        false,
		"profile_label_improvements_pcf_label_in_post_enabled":                    true,
		"responsive_web_edit_tweet_api_enabled":                                   true,
		"responsive_web_enhance_cards_enabled":                                    false,
		"responsive_web_graphql_exclude_directive_enabled":                        true,
		"responsive_web_graphql_skip_user_profile_image_extensions_enabled":       false,
		"responsive_web_graphql_timeline_navigation_enabled":                      true,
		"responsive_web_grok_analyze_button_fetch_trends_enabled":                 false,
		"responsive_web_grok_analyze_post_followups_enabled":                      false,
		"responsive_web_grok_share_attachment_enabled":                            true,
		"responsive_web_twitter_article_tweet_consumption_enabled":                true,
		"rweb_tipjar_consumption_enabled":                                         true,
		"rweb_video_timestamps_enabled":                                           true,
		"standardized_nudges_misinfo":                                             true,
		"tweet_awards_web_tipping_enabled":                                        false,
		"tweet_with_visibility_results_prefer_gql_limited_actions_policy_enabled": true,
		"verified_phone_label_enabled":                                            false,
		"view_counts_everywhere_api_enabled":                                      true,
	}
}
