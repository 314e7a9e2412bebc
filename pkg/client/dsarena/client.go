package dsarena

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/dsarena/dsarena/api"
)

// Client is a thin API client. Call Login once; the returned bearer
// token authenticates every later request.
type Client struct {
	client *resty.Client
}

func NewClient(endpoint string) (*Client, error) {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 30).
		SetRetryCount(3)

	return &Client{client}, nil
}

func (c *Client) Login(login string) error {
	res := &api.LoginResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetBody(api.LoginRequest{Login: login}).
		Post("/api/login")
	if err != nil {
		return err
	}
	if !res.Ok {
		return fmt.Errorf("failed to login: %s", res.Error)
	}
	c.client.SetAuthToken(res.Token)
	return nil
}

func (c *Client) JoinChallenge(challengeID uint) error {
	res := &api.JoinResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetPathParam("challenge", fmt.Sprint(challengeID)).
		Post("/api/challenges/{challenge}/join")
	if err != nil {
		return err
	}
	if !res.Ok {
		return fmt.Errorf("failed to join challenge: %s", res.Error)
	}
	return nil
}

func (c *Client) Submit(challengeID uint, fileName string, data []byte) (*api.SubmissionInfo, error) {
	res := &api.SubmitResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetError(res).
		SetPathParam("challenge", fmt.Sprint(challengeID)).
		SetFileReader("file", fileName, bytes.NewReader(data)).
		Post("/api/challenges/{challenge}/submissions")
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return nil, fmt.Errorf("submission rejected: %s", res.Error)
	}
	return res.Submission, nil
}

func (c *Client) LoadSubmissions(challengeID uint) ([]api.SubmissionInfo, error) {
	res := &api.SubmissionsResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetPathParam("challenge", fmt.Sprint(challengeID)).
		Get("/api/challenges/{challenge}/submissions")
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return nil, fmt.Errorf("failed to fetch submissions: %s", res.Error)
	}
	return res.Submissions, nil
}

func (c *Client) LoadLeaderboard(challengeID uint) ([]api.LeaderboardRow, error) {
	res := &api.LeaderboardResponse{}
	_, err := c.client.R().
		SetResult(res).
		SetPathParam("challenge", fmt.Sprint(challengeID)).
		Get("/api/challenges/{challenge}/leaderboard")
	if err != nil {
		return nil, err
	}
	if !res.Ok {
		return nil, fmt.Errorf("failed to fetch leaderboard: %s", res.Error)
	}
	return res.Entries, nil
}
