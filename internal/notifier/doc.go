// Package notifier turns enriched marketplace events into chat messages and
// fans each message out to the configured destinations.
//
// # Formatting
//
// Sales and listings share one layout: item name as title, a deep link to the
// marketplace page, the item description followed by the event narrative and
// seller/buyer/rarity/price lines, a fixed author block and accent color, and
// the item's original image.
//
// # Delivery
//
// Destinations are tried in configured order and every destination gets an
// attempt. The caller's commit hook runs once, right after the first confirmed
// delivery; failures of other destinations are logged and counted but do not
// fail the event.
package notifier
