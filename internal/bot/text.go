package bot

import (
	"fmt"
	"sort"
	"strings"

	"fetchbot/internal/format"
	"fetchbot/internal/stats"
)

func welcomeMessage() string {
	return "*Welcome to the Secure Fetch Bot*\n\n" +
		"I can download files from direct links or magnets and upload them to remote storage for you\\.\n\n" +
		"*Commands:*\n" +
		"send \\- Start a new download job\\.\n" +
		"info \\- Get a live status of your current job\\.\n" +
		"savedlinks \\- View completed upload links\\.\n" +
		"stats \\- View all\\-time data usage\\.\n" +
		"health \\- Check server status\\.\n" +
		"cancel \\- Cancel the current operation\\."
}

func statsMessage(c stats.Counters) string {
	return fmt.Sprintf(
		"*\\-\\-\\- All\\-Time Statistics \\-\\-\\-*\n"+
			"*Total Downloaded:* %s\n"+
			"*Total Uploaded:* %s\n"+
			"*Total Bandwidth Used:* %s",
		format.Escape(format.Bytes(c.Downloaded)),
		format.Escape(format.Bytes(c.Uploaded)),
		format.Escape(format.Bytes(c.Downloaded+c.Uploaded)),
	)
}

func healthMessage(total, used, free uint64, bandwidth int64) string {
	return fmt.Sprintf(
		"*\\-\\-\\- Server Status \\-\\-\\-*\n"+
			"*Disk Total:* %s\n"+
			"*Disk Used:* %s\n"+
			"*Disk Free:* %s\n\n"+
			"*Bandwidth Used by Bot:* %s",
		format.Escape(format.Bytes(int64(total))),
		format.Escape(format.Bytes(int64(used))),
		format.Escape(format.Bytes(int64(free))),
		format.Escape(format.Bytes(bandwidth)),
	)
}

func filenameChoiceMessage(original, smart, short string) string {
	return fmt.Sprintf(
		"*Choose a filename for:*\n"+
			"1\\. *Full Name*: `%s`\n"+
			"2\\. *Smart Name*: `%s`\n"+
			"3\\. *Short Name*: `%s`\n"+
			"4\\. *Custom Name*: \\(You will provide this\\)\n\n"+
			"Reply with one of: full, smart, short, custom\\.",
		format.Escape(original), format.Escape(smart), format.Escape(short),
	)
}

func savedLinksMessage(links map[string]string) string {
	if len(links) == 0 {
		return "No links have been saved yet\\."
	}

	names := make([]string, 0, len(links))
	for name := range links {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("*\\-\\-\\- Saved Links \\-\\-\\-*\n\n")
	for _, name := range names {
		fmt.Fprintf(&b, "*File:* `%s`\n*Link:* %s\n\n", format.Escape(name), format.Escape(links[name]))
	}
	return strings.TrimRight(b.String(), "\n")
}
