package dom

// Attribute markers written onto elements we have already touched, so
// repeated scans stay idempotent.
const (
	AttrSeen      = "data-ctron-seen"
	AttrProcessed = "data-ctron-processed"
	AttrAutomated = "data-ctron-automated"
	AttrURN       = "data-urn"
)

// Selector chains for the pieces of LinkedIn markup this pipeline touches.
// Best-effort by design; update here when LinkedIn ships new class names.
var (
	FeedPost = Locator{
		Name: "feed post",
		Selectors: []string{
			"div.feed-shared-update-v2[data-urn]",
			"div[data-urn^='urn:li:activity']",
			"div[data-id^='urn:li:activity']",
		},
	}

	CommentButton = Locator{
		Name: "comment button",
		Selectors: []string{
			"button[aria-label*='Comment']",
			"button.comment-button",
			"button.social-actions-button--comment",
			"button[aria-label*='comment']",
		},
	}

	CommentEditor = Locator{
		Name: "comment editor",
		Selectors: []string{
			"div.comments-comment-box__editor div[contenteditable='true']",
			"div.ql-editor[contenteditable='true']",
			"div[role='textbox'][contenteditable='true']",
			"div.comments-comment-texteditor div[contenteditable='true']",
		},
	}

	SubmitComment = Locator{
		Name: "comment submit button",
		Selectors: []string{
			"button.comments-comment-box__submit-button",
			"button.comments-comment-box__submit-button--cr",
			"button[class*='comment'][class*='submit']",
		},
	}

	PostText = Locator{
		Name: "post text",
		Selectors: []string{
			"div.feed-shared-update-v2__description span.break-words",
			"div.update-components-text span.break-words",
			"div.feed-shared-inline-show-more-text",
		},
	}

	PostAuthor = Locator{
		Name: "post author",
		Selectors: []string{
			"span.update-components-actor__name span[aria-hidden='true']",
			"span.feed-shared-actor__name",
			"a.update-components-actor__meta-link span[dir='ltr']",
		},
	}

	LoadMore = Locator{
		Name: "load more button",
		Selectors: []string{
			"button.scaffold-finite-scroll__load-button",
			"button[aria-label*='more results']",
			"button.scaffold-finite-scroll__load-button--full-width",
		},
	}
)
