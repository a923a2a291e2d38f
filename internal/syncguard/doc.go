// Package syncguard implements echo suppression between views that observe
// and write the same FocusState.
//
// When a view re-renders because the focus changed, redrawing often makes
// the panel emit its own "selection changed" signal. That signal is an echo,
// not user input, and must not be written back. A view holds its latches for
// the whole render; any gesture it emits while a latch is held is swallowed.
//
// Release is scoped: Hold returns a release function that callers defer, so
// a render that fails or panics cannot leave a latch set and eat the next
// genuine gesture. Consuming an echo does not release the latch; only the
// end of the render does.
//
// A Guard is the latch pair for two linked views. Each view holds its own
// side while it renders; a gesture from either view while either side is
// held is an echo, whether the view redrew itself or its peer's redraw
// reached across the link. Star links one hub view to any number of spokes
// with one independent Guard per spoke. Closing a Guard (when either view
// goes away) makes both of its latches inert.
package syncguard
