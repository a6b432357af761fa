// Package domain defines the core business entities of the Recite API:
// users, markdown notes, the cards projected from their cloze blocks, and
// the per-cloze review state the scheduler operates on. Entities validate
// themselves and carry no persistence or transport concerns.
package domain
