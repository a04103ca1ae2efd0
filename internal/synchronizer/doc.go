/*
Package synchronizer keeps the prices in a markup tree converted while the
tree keeps changing.

# Lifecycle

	sync := synchronizer.New(doc, loop, rateStore, settingsStore, synchronizer.DefaultConfig(host))
	converted, err := sync.Start(ctx)
	...
	sync.Revert()
	sync.Close()

Start performs a full scan, attaches a mutation observer to the body and
starts a polling fallback. Changes to rates or settings revert every
conversion and rescan from scratch.

# Marks

Every converted element carries a Mark holding its pre-conversion markup
and title. Marked elements and everything inside them are never scanned
again, which makes repeated scans idempotent. A text change inside a
marked element clears the mark and converts the element again at once;
other changes are batched into one scan per frame.

# Replacement

Elements whose text is exactly the scanned text get their matches spliced
into the owning text nodes, back to front. Structured containers, and
matches that cross text node boundaries, get their visible text replaced
as a whole.

All methods must run on the scheduler's execution context.
*/
package synchronizer
