package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"mvdan.cc/xurls/v2"

	"linkkeeper/internal/domain"
	"linkkeeper/internal/links"
)

// maxLinksPerMessage caps how many URLs from a single message are saved.
const maxLinksPerMessage = 5

const helpText = `Send me a website link and I'll save it with its title, description and preview.

/list [page] - your links
/view <link> - show a link
/delete <link> - delete a link
/retitle <link> <title> - change a link's title
/collections [page] - your collections
/newcollection <name> - create a collection
/collection <collection> [page] - links in a collection
/addto <collection> <link> - add a link to a collection
/renamecollection <collection> <name> - rename a collection
/dropcollection <collection> - delete a collection`

// LinkService is the part of links.Service the bot needs.
type LinkService interface {
	CreateLink(ctx context.Context, userID int64, rawURL string, collectionIDs []string) (domain.Link, error)
	GetLink(ctx context.Context, userID int64, linkID string) (domain.Link, error)
	Preview(ctx context.Context, userID int64, linkID string) ([]byte, error)
	ListLinks(ctx context.Context, userID int64, page, size int) (links.Page[domain.Link], error)
	UpdateLink(ctx context.Context, userID int64, linkID string, upd links.LinkUpdate) (domain.Link, error)
	DeleteLink(ctx context.Context, userID int64, linkID string) error
	CreateCollection(ctx context.Context, userID int64, name, description string) (domain.Collection, error)
	ListCollections(ctx context.Context, userID int64, page, size int) (links.Page[domain.Collection], error)
	RenameCollection(ctx context.Context, userID int64, collectionID, name string) (domain.Collection, error)
	DeleteCollection(ctx context.Context, userID int64, collectionID string) error
	AddToCollection(ctx context.Context, userID int64, collectionID, linkID string) (domain.Link, error)
	LinksInCollection(ctx context.Context, userID int64, collectionID string, page, size int) (links.Page[domain.Link], error)
}

// reply is one outgoing message. A non-nil photo is sent with text as caption.
type reply struct {
	text  string
	photo []byte
}

func textReply(format string, args ...any) reply {
	return reply{text: fmt.Sprintf(format, args...)}
}

// commands turns incoming text into replies, independent of the Telegram client.
type commands struct {
	links LinkService
	log   logrus.FieldLogger
}

func (c *commands) dispatch(ctx context.Context, userID int64, text string) []reply {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return c.saveLinks(ctx, userID, text)
	}

	fields := strings.Fields(text)
	// Strip a @botname suffix used in group chats.
	cmd, _, _ := strings.Cut(fields[0], "@")
	args := fields[1:]

	log := c.log.WithFields(logrus.Fields{"user_id": userID, "command": cmd})
	log.Debug("Received command")

	switch cmd {
	case "/start":
		return []reply{{text: "Welcome to linkkeeper!\n\n" + helpText}}
	case "/help":
		return []reply{{text: helpText}}
	case "/list":
		return c.listLinks(ctx, log, userID, args)
	case "/view":
		return c.viewLink(ctx, log, userID, args)
	case "/delete":
		return c.deleteLink(ctx, log, userID, args)
	case "/retitle":
		return c.retitleLink(ctx, log, userID, args)
	case "/collections":
		return c.listCollections(ctx, log, userID, args)
	case "/newcollection":
		return c.newCollection(ctx, log, userID, args)
	case "/collection":
		return c.showCollection(ctx, log, userID, args)
	case "/addto":
		return c.addToCollection(ctx, log, userID, args)
	case "/renamecollection":
		return c.renameCollection(ctx, log, userID, args)
	case "/dropcollection":
		return c.dropCollection(ctx, log, userID, args)
	default:
		return []reply{textReply("Unknown command %s. Try /help.", cmd)}
	}
}

func (c *commands) saveLinks(ctx context.Context, userID int64, text string) []reply {
	found := xurls.Strict().FindAllString(text, maxLinksPerMessage)
	if len(found) == 0 {
		return []reply{{text: "Send me a link to save, or use /help."}}
	}

	log := c.log.WithField("user_id", userID)
	replies := make([]reply, 0, len(found))
	for _, raw := range found {
		link, err := c.links.CreateLink(ctx, userID, raw, nil)
		if err != nil {
			replies = append(replies, c.failure(log.WithField("url", raw), err))
			continue
		}
		replies = append(replies, c.linkReply(ctx, log, userID, link, "Saved"))
	}
	return replies
}

func (c *commands) listLinks(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	page, err := c.links.ListLinks(ctx, userID, pageArg(args, 0), links.DefaultPageSize)
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	if page.Total == 0 {
		return []reply{{text: "You have no saved links yet. Send me one!"}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your links (page %d of %d):\n", page.Number, page.Pages())
	for _, link := range page.Items {
		fmt.Fprintf(&b, "\n%s [%s]\n%s\nid: %s\n", displayTitle(link), link.Type, link.URL, link.ID)
	}
	if page.HasNext() {
		fmt.Fprintf(&b, "\nMore: /list %d", page.Number+1)
	}
	return []reply{{text: b.String()}}
}

func (c *commands) viewLink(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) != 1 {
		return []reply{{text: "Usage: /view <link>"}}
	}
	link, err := c.links.GetLink(ctx, userID, args[0])
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{c.linkReply(ctx, log, userID, link, "")}
}

func (c *commands) deleteLink(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) != 1 {
		return []reply{{text: "Usage: /delete <link>"}}
	}
	if err := c.links.DeleteLink(ctx, userID, args[0]); err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{{text: "Link deleted."}}
}

func (c *commands) retitleLink(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) < 2 {
		return []reply{{text: "Usage: /retitle <link> <title>"}}
	}
	title := strings.Join(args[1:], " ")
	link, err := c.links.UpdateLink(ctx, userID, args[0], links.LinkUpdate{Title: &title})
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{textReply("Title updated: %s", link.Title)}
}

func (c *commands) listCollections(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	page, err := c.links.ListCollections(ctx, userID, pageArg(args, 0), links.DefaultPageSize)
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	if page.Total == 0 {
		return []reply{{text: "You have no collections yet. Create one with /newcollection <name>."}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your collections (page %d of %d):\n", page.Number, page.Pages())
	for _, col := range page.Items {
		fmt.Fprintf(&b, "\n%s\nid: %s\n", col.Name, col.ID)
	}
	if page.HasNext() {
		fmt.Fprintf(&b, "\nMore: /collections %d", page.Number+1)
	}
	return []reply{{text: b.String()}}
}

func (c *commands) newCollection(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	col, err := c.links.CreateCollection(ctx, userID, strings.Join(args, " "), "")
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{textReply("Collection %q created.\nid: %s", col.Name, col.ID)}
}

func (c *commands) showCollection(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) < 1 {
		return []reply{{text: "Usage: /collection <collection> [page]"}}
	}
	page, err := c.links.LinksInCollection(ctx, userID, args[0], pageArg(args, 1), links.DefaultPageSize)
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	if page.Total == 0 {
		return []reply{{text: "This collection is empty."}}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Links in collection (page %d of %d):\n", page.Number, page.Pages())
	for _, link := range page.Items {
		fmt.Fprintf(&b, "\n%s\n%s\nid: %s\n", displayTitle(link), link.URL, link.ID)
	}
	return []reply{{text: b.String()}}
}

func (c *commands) addToCollection(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) != 2 {
		return []reply{{text: "Usage: /addto <collection> <link>"}}
	}
	link, err := c.links.AddToCollection(ctx, userID, args[0], args[1])
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{textReply("Added %s to the collection.", displayTitle(link))}
}

func (c *commands) renameCollection(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) < 2 {
		return []reply{{text: "Usage: /renamecollection <collection> <name>"}}
	}
	col, err := c.links.RenameCollection(ctx, userID, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{textReply("Collection renamed to %q.", col.Name)}
}

func (c *commands) dropCollection(ctx context.Context, log logrus.FieldLogger, userID int64, args []string) []reply {
	if len(args) != 1 {
		return []reply{{text: "Usage: /dropcollection <collection>"}}
	}
	if err := c.links.DeleteCollection(ctx, userID, args[0]); err != nil {
		return []reply{c.failure(log, err)}
	}
	return []reply{{text: "Collection deleted. Its links were kept."}}
}

// linkReply renders a link, attaching its preview when one is stored.
func (c *commands) linkReply(ctx context.Context, log logrus.FieldLogger, userID int64, link domain.Link, heading string) reply {
	var b strings.Builder
	if heading != "" {
		b.WriteString(heading + ": ")
	}
	fmt.Fprintf(&b, "%s\ntype: %s\n", displayTitle(link), link.Type)
	if link.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", link.Description)
	}
	fmt.Fprintf(&b, "\n%s\nid: %s", link.URL, link.ID)

	r := reply{text: b.String()}
	if link.HasPreview {
		photo, err := c.links.Preview(ctx, userID, link.ID)
		if err != nil {
			log.WithError(err).WithField("link_id", link.ID).Warn("Could not load preview image")
		} else {
			r.photo = photo
		}
	}
	return r
}

// failure maps an error to a user-facing reply and logs unexpected ones.
func (c *commands) failure(log logrus.FieldLogger, err error) reply {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return reply{text: "Nothing found with that id."}
	case errors.Is(err, domain.ErrInvalidURL):
		return reply{text: "That doesn't look like a valid http(s) link."}
	case errors.Is(err, domain.ErrDuplicateURL),
		errors.Is(err, domain.ErrForeignCollection),
		errors.Is(err, domain.ErrInvalidCollectionName):
		return reply{text: capitalize(err.Error()) + "."}
	default:
		log.WithError(err).Error("Command failed")
		return reply{text: "Something went wrong, please try again later."}
	}
}

func displayTitle(link domain.Link) string {
	if link.Title != "" {
		return link.Title
	}
	return link.URL
}

// pageArg parses args[i] as a page number, defaulting to 1.
func pageArg(args []string, i int) int {
	if i >= len(args) {
		return 1
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
