package access

// OwnerSource records where a booking's effective owner came from.
// Exactly one of ViaReservation or ViaDirectUser is returned by Owner.
type OwnerSource interface {
	OwnerID() uint64
	ownerSource()
}

// ViaReservation means the booking belongs to a reservation and its
// creator owns the booking. The booking's direct user is ignored.
type ViaReservation struct{ Creator uint64 }

// ViaDirectUser means the booking has no reservation and is owned by its user.
type ViaDirectUser struct{ User uint64 }

func (o ViaReservation) OwnerID() uint64 { return o.Creator }
func (o ViaDirectUser) OwnerID() uint64  { return o.User }

func (ViaReservation) ownerSource() {}
func (ViaDirectUser) ownerSource()  {}

// Owner resolves the effective owner of a booking. The boolean is false when
// the booking is nil or the resolved side carries no user id.
func Owner(b *Booking) (OwnerSource, bool) {
	if b == nil {
		return nil, false
	}
	var src OwnerSource
	if b.Reservation != nil {
		src = ViaReservation{Creator: b.Reservation.CreatorID}
	} else {
		src = ViaDirectUser{User: b.UserID}
	}
	if src.OwnerID() == 0 {
		return src, false
	}
	return src, true
}

// IsOwner compares identity keys, never object identity: two Actor values
// for the same user id are the same owner.
func IsOwner(a Actor, owner OwnerSource) bool {
	if owner == nil || !a.Authenticated || a.ID == 0 {
		return false
	}
	return a.ID == owner.OwnerID()
}
