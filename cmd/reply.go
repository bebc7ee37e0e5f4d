package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Mohzrb/drivo-chatmeter-bridge-sub000/pkg/chatmeter"
)

var (
	replyReviewID string
	replyText     string
)

var replyCmd = &cobra.Command{
	Use:   "reply",
	Short: "Post a public reply to a review on its source platform",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Chatmeter.Key == "" {
			return eris.New("chatmeter api key is required (BRIDGE_CHATMETER_KEY)")
		}

		client := chatmeter.NewClient(cfg.Chatmeter.Key, chatmeter.WithBaseURL(cfg.Chatmeter.BaseURL))
		if err := client.PostReply(cmd.Context(), replyReviewID, replyText); err != nil {
			return eris.Wrap(err, "post reply")
		}

		zap.L().Info("reply posted", zap.String("review_id", replyReviewID))
		return nil
	},
}

func init() {
	replyCmd.Flags().StringVar(&replyReviewID, "review-id", "", "review to reply to (required)")
	replyCmd.Flags().StringVar(&replyText, "text", "", "reply body (required)")
	_ = replyCmd.MarkFlagRequired("review-id")
	_ = replyCmd.MarkFlagRequired("text")
	rootCmd.AddCommand(replyCmd)
}
