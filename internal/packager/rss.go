package packager

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/ctarchive/ctarchiver/internal/atomicfile"
)

// RSS 2.0 generation has no analogue in the example pack's third-party
// stack, so it is built on encoding/xml directly; see DESIGN.md for the
// standard-library justification this process requires.

// rssFeed, rssChannel, rssItem, rssEnclosure mirror the structure the
// original tool built with xml.dom.minidom: a channel header plus one
// item per torrent. The nonstandard "len" enclosure attribute (real RSS
// 2.0 uses "length") is kept verbatim to match spec.md §4.4 exactly.
type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Link        string    `xml:"link"`
	TTL         int       `xml:"ttl"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	GUID        string       `xml:"guid"`
	Enclosure   rssEnclosure `xml:"enclosure"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Type   string `xml:"type,attr"`
	Length int64  `xml:"len,attr"`
}

// RSSItemParams is the per-torrent data needed to append a feed item.
type RSSItemParams struct {
	Title       string
	Description string
	BTIH        [20]byte
	DownloadURL string
	TorrentName string
	TotalSize   int64
}

// UpdateRSSFeed loads an existing feed (if any), appends one item per
// torrent, and atomically rewrites the feed file, per §4.4's "Aggregate
// outputs".
func UpdateRSSFeed(path_ string, logName, description string, items []RSSItemParams) error {
	feed, err := loadOrInitRSSFeed(path_, logName, description)
	if err != nil {
		return err
	}

	for _, it := range items {
		feed.Channel.Items = append(feed.Channel.Items, rssItem{
			Title:       it.Title,
			Description: it.Description,
			GUID:        Infohash(it.BTIH),
			Enclosure: rssEnclosure{
				URL:    joinDownloadURL(it.DownloadURL, it.TorrentName),
				Type:   "application/x-bittorrent",
				Length: it.TotalSize,
			},
		})
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling rss feed: %w", err)
	}
	body = append([]byte(xml.Header), body...)
	return atomicfile.Write(path_, body, 0o644)
}

func loadOrInitRSSFeed(path_ string, logName, description string) (*rssFeed, error) {
	body, err := os.ReadFile(path_)
	if os.IsNotExist(err) {
		return &rssFeed{
			Version: "2.0",
			Channel: rssChannel{
				Title:       logName,
				Description: description,
				Link:        logName,
				TTL:         1440,
			},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading rss feed %q: %w", path_, err)
	}
	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("decoding rss feed %q: %w", path_, err)
	}
	return &feed, nil
}

// joinDownloadURL slash-normalizes downloadURL and name into one URL,
// per §4.4's "slash-normalized" enclosure.url requirement. path.Join
// would collapse the "//" in a scheme like "https://", so this trims and
// re-joins with a single separator instead.
func joinDownloadURL(downloadURL, name string) string {
	return strings.TrimRight(downloadURL, "/") + "/" + strings.TrimLeft(name, "/")
}
