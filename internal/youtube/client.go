package youtube

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/replyt/replyt/internal/domain"
	"github.com/replyt/replyt/internal/logger"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3"

// Channel holds the channel fields the analysis pipeline needs.
type Channel struct {
	ID              string
	Title           string
	ThumbnailURL    string
	SubscriberCount int64
	uploadsPlaylist string
}

// Video holds the video fields the analysis pipeline needs.
type Video struct {
	ID           string
	Title        string
	ChannelID    string
	ChannelTitle string
	ThumbnailURL string
	ViewCount    int64
	CommentCount int64
	PublishedAt  time.Time
}

// Comment is a top-level comment from a video's comment threads.
type Comment struct {
	ID          string
	Text        string
	AuthorName  string
	LikeCount   int64
	ReplyCount  int64
	PublishedAt time.Time
}

// ClientConfig holds configuration for the YouTube Data API client.
type ClientConfig struct {
	APIKey  string
	BaseURL string
}

// Client wraps the YouTube Data API v3.
type Client struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// NewClient creates a new YouTube Data API client.
func NewClient(cfg *ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	client := resty.New()
	client.SetTimeout(30 * time.Second)

	return &Client{
		client:  client,
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
	}
}

// YouTube Data API response structures. Counts arrive as decimal strings.

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type thumbnail struct {
	URL string `json:"url"`
}

type thumbnails struct {
	Default thumbnail `json:"default"`
	High    thumbnail `json:"high"`
}

func (t thumbnails) best() string {
	if t.High.URL != "" {
		return t.High.URL
	}
	return t.Default.URL
}

type channelsResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title      string     `json:"title"`
			Thumbnails thumbnails `json:"thumbnails"`
		} `json:"snippet"`
		Statistics struct {
			SubscriberCount string `json:"subscriberCount"`
		} `json:"statistics"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	Items []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title        string     `json:"title"`
			ChannelID    string     `json:"channelId"`
			ChannelTitle string     `json:"channelTitle"`
			Thumbnails   thumbnails `json:"thumbnails"`
			PublishedAt  time.Time  `json:"publishedAt"`
		} `json:"snippet"`
		Statistics struct {
			ViewCount    string `json:"viewCount"`
			CommentCount string `json:"commentCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type commentThreadsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ID      string `json:"id"`
		Snippet struct {
			TotalReplyCount int64 `json:"totalReplyCount"`
			TopLevelComment struct {
				Snippet struct {
					TextDisplay       string    `json:"textDisplay"`
					AuthorDisplayName string    `json:"authorDisplayName"`
					LikeCount         int64     `json:"likeCount"`
					PublishedAt       time.Time `json:"publishedAt"`
				} `json:"snippet"`
			} `json:"topLevelComment"`
		} `json:"snippet"`
	} `json:"items"`
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out interface{}) error {
	var apiErr apiError
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetQueryParams(params).
		SetResult(out).
		SetError(&apiErr).
		Get(c.baseURL + path)
	if err != nil {
		return domain.NewUpstreamError("youtube", err)
	}
	if resp.IsError() {
		msg := apiErr.Error.Message
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode())
		}
		return domain.NewUpstreamError("youtube", fmt.Errorf("youtube api: %s", msg))
	}
	return nil
}

// ResolveChannel looks up a channel by UC id, @handle or legacy username.
func (c *Client) ResolveChannel(ctx context.Context, identifier string) (*Channel, error) {
	params := map[string]string{
		"part": "snippet,statistics,contentDetails",
	}
	switch {
	case strings.HasPrefix(identifier, "UC"):
		params["id"] = identifier
	case strings.HasPrefix(identifier, "@"):
		params["forHandle"] = identifier
	default:
		params["forUsername"] = identifier
	}

	var resp channelsResponse
	if err := c.get(ctx, "/channels", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, domain.NewNotFoundError("channel", identifier)
	}

	item := resp.Items[0]
	return &Channel{
		ID:              item.ID,
		Title:           item.Snippet.Title,
		ThumbnailURL:    item.Snippet.Thumbnails.best(),
		SubscriberCount: parseCount(item.Statistics.SubscriberCount),
		uploadsPlaylist: item.ContentDetails.RelatedPlaylists.Uploads,
	}, nil
}

// RecentVideos lists a channel's most recent uploads. It walks the uploads
// playlist rather than the Search API, which costs a fraction of the quota.
func (c *Client) RecentVideos(ctx context.Context, channel *Channel, limit int) ([]*Video, error) {
	if channel.uploadsPlaylist == "" {
		resolved, err := c.ResolveChannel(ctx, channel.ID)
		if err != nil {
			return nil, err
		}
		channel.uploadsPlaylist = resolved.uploadsPlaylist
	}
	if channel.uploadsPlaylist == "" {
		return nil, nil
	}

	var playlist playlistItemsResponse
	err := c.get(ctx, "/playlistItems", map[string]string{
		"part":       "contentDetails",
		"playlistId": channel.uploadsPlaylist,
		"maxResults": strconv.Itoa(limit),
	}, &playlist)
	if err != nil {
		return nil, err
	}
	if len(playlist.Items) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(playlist.Items))
	for _, item := range playlist.Items {
		ids = append(ids, item.ContentDetails.VideoID)
	}

	return c.videosByID(ctx, strings.Join(ids, ","))
}

// VideoDetails fetches a single video including its parent channel id.
func (c *Client) VideoDetails(ctx context.Context, videoID string) (*Video, error) {
	videos, err := c.videosByID(ctx, videoID)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, domain.NewNotFoundError("video", videoID)
	}
	return videos[0], nil
}

func (c *Client) videosByID(ctx context.Context, ids string) ([]*Video, error) {
	var resp videosResponse
	err := c.get(ctx, "/videos", map[string]string{
		"part": "snippet,statistics",
		"id":   ids,
	}, &resp)
	if err != nil {
		return nil, err
	}

	videos := make([]*Video, 0, len(resp.Items))
	for _, item := range resp.Items {
		videos = append(videos, &Video{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
			ThumbnailURL: item.Snippet.Thumbnails.best(),
			ViewCount:    parseCount(item.Statistics.ViewCount),
			CommentCount: parseCount(item.Statistics.CommentCount),
			PublishedAt:  item.Snippet.PublishedAt,
		})
	}
	return videos, nil
}

// VideoComments fetches top-level comments for a video in relevance order,
// paging through comment threads until maxComments or the last page.
func (c *Client) VideoComments(ctx context.Context, videoID string, maxComments int) ([]*Comment, error) {
	var comments []*Comment
	pageToken := ""

	for {
		pageSize := maxComments - len(comments)
		if pageSize > 100 {
			pageSize = 100
		}

		params := map[string]string{
			"part":       "snippet",
			"videoId":    videoID,
			"order":      "relevance",
			"maxResults": strconv.Itoa(pageSize),
		}
		if pageToken != "" {
			params["pageToken"] = pageToken
		}

		var resp commentThreadsResponse
		if err := c.get(ctx, "/commentThreads", params, &resp); err != nil {
			return nil, err
		}

		for _, item := range resp.Items {
			s := item.Snippet.TopLevelComment.Snippet
			comments = append(comments, &Comment{
				ID:          item.ID,
				Text:        s.TextDisplay,
				AuthorName:  s.AuthorDisplayName,
				LikeCount:   s.LikeCount,
				ReplyCount:  item.Snippet.TotalReplyCount,
				PublishedAt: s.PublishedAt,
			})
		}

		if resp.NextPageToken == "" || len(comments) >= maxComments {
			break
		}
		pageToken = resp.NextPageToken
	}

	logger.With(logger.Fields{
		logger.FieldVideoID: videoID,
	}).WithCount(len(comments)).Debug(ctx, "fetched video comments")

	return comments, nil
}

func parseCount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
