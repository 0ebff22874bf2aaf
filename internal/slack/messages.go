package slack

import (
	"fmt"

	"github.com/slack-go/slack"
)

// NewInfoMessage builds a block-kit message with a bold title line and a
// plain body section.
func NewInfoMessage(title, body string) slack.MsgOption {
	header := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, fmt.Sprintf("*%s*", title), false, false),
		nil, nil,
	)
	text := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.PlainTextType, body, false, false),
		nil, nil,
	)
	return slack.MsgOptionBlocks(header, text)
}
