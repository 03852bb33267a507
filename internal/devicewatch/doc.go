// Package devicewatch triggers a backup run when removable storage is
// attached. On Linux it listens for udev uevents over netlink; elsewhere
// Start is a logged no-op and runs stay schedule- or manual-driven.
package devicewatch
