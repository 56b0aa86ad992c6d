// Package harness runs multi-tab storefront scenarios.
//
// A scenario opens several tabs (one session.Session each) on a shared
// in-memory broadcast bus, drives carts and images step by step, and then
// checks assertions against the final state and the recorded trace.
// Messages only move between tabs on an explicit deliver step, so the
// interleaving is whatever the scenario says it is.
//
// # Scenario Format
//
//	name: admin_update_reaches_shop
//	description: "An admin image change shows up in the storefront"
//	tabs: [shop, admin]
//	catalog: catalog.yaml        # optional, defaults to the embedded catalog
//	steps:
//	  - tab: shop
//	    do: add
//	    product: 1
//	    quantity: 2
//	  - tab: admin
//	    do: set_image
//	    product: 1
//	    image: "data:image/jpeg;base64,AAAA"
//	  - do: deliver
//	  - tab: shop
//	    do: change
//	    product: 1
//	    quantity: -5
//	    expect: { quantity: 0 }
//	assertions:
//	  - type: image
//	    tab: shop
//	    product: 1
//	    image: "data:image/jpeg;base64,AAAA"
//	  - type: cart
//	    tab: shop
//	    total_items: 0
//
// # Steps
//
//   - add, change, set: cart.AddItem, ChangeQuantity, SetQuantity with
//     product and quantity (add defaults to 1)
//   - remove, clear: cart.RemoveItem, Clear
//   - set_image, delete_image: image change broadcast from that tab
//   - request_sync: ask the other tabs for their image maps
//   - deliver: pump the bus and drain every tab until quiet
//   - close: close the tab's sync channel
//
// An expect clause names the error code the step must fail with, or the
// resulting line quantity.
//
// # Assertion Types
//
//   - cart: total_items, line_count, and per-product lines
//   - image: a product's payload in one tab, or absent: true
//   - sync_state: the tab's tabsync state
//   - trace_contains, trace_count, trace_order: on recorded step ops
//
// Runs are deterministic: tab origins are the tab names, the clock is
// fixed, and the trace carries its own sequence. RunWithGolden snapshots
// the trace and final per-tab state in testdata/golden.
package harness
