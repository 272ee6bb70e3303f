package wire

import (
	"encoding/binary"

	"github.com/duskrelay/chatserver/errors"
)

// Each payload type below implements Encode() []byte and a matching
// DecodeXxx(payload []byte) (*Xxx, error) function. Field order and width
// match the original fixed-size C structs (protocol.h) field for field;
// strings are fixed-width, NUL-padded byte arrays rather than
// length-prefixed, same as the original.

// RegisterPayload is the MSG_REGISTER request body.
type RegisterPayload struct {
	Email    string
	Username string
	Password string
}

func (p *RegisterPayload) Encode() []byte {
	buf := make([]byte, MaxEmailLen+MaxNameLen+MaxPassLen)
	putString(buf[0:MaxEmailLen], p.Email)
	putString(buf[MaxEmailLen:MaxEmailLen+MaxNameLen], p.Username)
	putString(buf[MaxEmailLen+MaxNameLen:], p.Password)
	return buf
}

func DecodeRegisterPayload(b []byte) (*RegisterPayload, error) {
	want := MaxEmailLen + MaxNameLen + MaxPassLen
	if len(b) != want {
		return nil, errors.New("wire: RegisterPayload: want %d bytes, got %d", want, len(b))
	}
	return &RegisterPayload{
		Email:    getString(b[0:MaxEmailLen]),
		Username: getString(b[MaxEmailLen : MaxEmailLen+MaxNameLen]),
		Password: getString(b[MaxEmailLen+MaxNameLen:]),
	}, nil
}

// LoginPayload is the MSG_LOGIN request body.
type LoginPayload struct {
	Email    string
	Password string
}

func (p *LoginPayload) Encode() []byte {
	buf := make([]byte, MaxEmailLen+MaxPassLen)
	putString(buf[0:MaxEmailLen], p.Email)
	putString(buf[MaxEmailLen:], p.Password)
	return buf
}

func DecodeLoginPayload(b []byte) (*LoginPayload, error) {
	want := MaxEmailLen + MaxPassLen
	if len(b) != want {
		return nil, errors.New("wire: LoginPayload: want %d bytes, got %d", want, len(b))
	}
	return &LoginPayload{
		Email:    getString(b[0:MaxEmailLen]),
		Password: getString(b[MaxEmailLen:]),
	}, nil
}

// MyInfoPayload is returned after a successful login.
type MyInfoPayload struct {
	UID        uint32
	Username   string
	Email      string
	FriendCode string
}

func (p *MyInfoPayload) Encode() []byte {
	buf := make([]byte, 4+MaxNameLen+MaxEmailLen+FriendCodeLen)
	binary.BigEndian.PutUint32(buf[0:4], p.UID)
	off := 4
	putString(buf[off:off+MaxNameLen], p.Username)
	off += MaxNameLen
	putString(buf[off:off+MaxEmailLen], p.Email)
	off += MaxEmailLen
	putString(buf[off:off+FriendCodeLen], p.FriendCode)
	return buf
}

func DecodeMyInfoPayload(b []byte) (*MyInfoPayload, error) {
	want := 4 + MaxNameLen + MaxEmailLen + FriendCodeLen
	if len(b) != want {
		return nil, errors.New("wire: MyInfoPayload: want %d bytes, got %d", want, len(b))
	}
	off := 4
	p := &MyInfoPayload{UID: binary.BigEndian.Uint32(b[0:4])}
	p.Username = getString(b[off : off+MaxNameLen])
	off += MaxNameLen
	p.Email = getString(b[off : off+MaxEmailLen])
	off += MaxEmailLen
	p.FriendCode = getString(b[off : off+FriendCodeLen])
	return p, nil
}

// UpdateUserPayload is the MSG_UPDATE_USER request body. Either field may
// be left empty to mean "leave unchanged".
type UpdateUserPayload struct {
	NewUsername string
	NewPassword string
}

func (p *UpdateUserPayload) Encode() []byte {
	buf := make([]byte, MaxNameLen+MaxPassLen)
	putString(buf[0:MaxNameLen], p.NewUsername)
	putString(buf[MaxNameLen:], p.NewPassword)
	return buf
}

func DecodeUpdateUserPayload(b []byte) (*UpdateUserPayload, error) {
	want := MaxNameLen + MaxPassLen
	if len(b) != want {
		return nil, errors.New("wire: UpdateUserPayload: want %d bytes, got %d", want, len(b))
	}
	return &UpdateUserPayload{
		NewUsername: getString(b[0:MaxNameLen]),
		NewPassword: getString(b[MaxNameLen:]),
	}, nil
}

// AddContactPayload is the MSG_ADD_BY_CODE request body.
type AddContactPayload struct {
	FriendCode string
}

func (p *AddContactPayload) Encode() []byte {
	buf := make([]byte, FriendCodeLen)
	putString(buf, p.FriendCode)
	return buf
}

func DecodeAddContactPayload(b []byte) (*AddContactPayload, error) {
	if len(b) != FriendCodeLen {
		return nil, errors.New("wire: AddContactPayload: want %d bytes, got %d", FriendCodeLen, len(b))
	}
	return &AddContactPayload{FriendCode: getString(b)}, nil
}

// ContactSummary describes one row of a contacts or pending-requests list.
type ContactSummary struct {
	UID      uint32
	Username string
	IsOnline bool
}

const contactSummarySize = 4 + MaxNameLen + 4

func (p *ContactSummary) Encode() []byte {
	buf := make([]byte, contactSummarySize)
	binary.BigEndian.PutUint32(buf[0:4], p.UID)
	putString(buf[4:4+MaxNameLen], p.Username)
	var online uint32
	if p.IsOnline {
		online = 1
	}
	binary.BigEndian.PutUint32(buf[4+MaxNameLen:], online)
	return buf
}

func DecodeContactSummary(b []byte) (*ContactSummary, error) {
	if len(b) != contactSummarySize {
		return nil, errors.New("wire: ContactSummary: want %d bytes, got %d", contactSummarySize, len(b))
	}
	return &ContactSummary{
		UID:      binary.BigEndian.Uint32(b[0:4]),
		Username: getString(b[4 : 4+MaxNameLen]),
		IsOnline: binary.BigEndian.Uint32(b[4+MaxNameLen:]) != 0,
	}, nil
}

// EncodeContactSummaries concatenates a slice of summaries into one
// RESP_CONTACTS / RESP_REQUESTS payload.
func EncodeContactSummaries(list []ContactSummary) []byte {
	buf := make([]byte, 0, len(list)*contactSummarySize)
	for i := range list {
		buf = append(buf, list[i].Encode()...)
	}
	return buf
}

func DecodeContactSummaries(b []byte) ([]ContactSummary, error) {
	if len(b)%contactSummarySize != 0 {
		return nil, errors.New("wire: ContactSummary list: length %d not a multiple of %d", len(b), contactSummarySize)
	}
	n := len(b) / contactSummarySize
	out := make([]ContactSummary, n)
	for i := 0; i < n; i++ {
		cs, err := DecodeContactSummary(b[i*contactSummarySize : (i+1)*contactSummarySize])
		if err != nil {
			return nil, err
		}
		out[i] = *cs
	}
	return out, nil
}

// DecideRequestPayload is the MSG_DECIDE_REQUEST request body.
type DecideRequestPayload struct {
	TargetUID uint32
	Accepted  bool
}

func (p *DecideRequestPayload) Encode() []byte {
	buf := make([]byte, 5)
	binary.BigEndian.PutUint32(buf[0:4], p.TargetUID)
	if p.Accepted {
		buf[4] = 1
	}
	return buf
}

func DecodeDecideRequestPayload(b []byte) (*DecideRequestPayload, error) {
	if len(b) != 5 {
		return nil, errors.New("wire: DecideRequestPayload: want 5 bytes, got %d", len(b))
	}
	return &DecideRequestPayload{
		TargetUID: binary.BigEndian.Uint32(b[0:4]),
		Accepted:  b[4] != 0,
	}, nil
}

// CreateConvPayload is the MSG_CREATE_CONV request body.
type CreateConvPayload struct {
	Type             ConvType
	Name             string
	Description      string
	ParticipantUIDs  []uint32
}

const createConvFixedSize = 1 + MaxNameLen + MaxDescLen + 4 + MaxParticipants*4

func (p *CreateConvPayload) Encode() []byte {
	buf := make([]byte, createConvFixedSize)
	buf[0] = byte(p.Type)
	off := 1
	putString(buf[off:off+MaxNameLen], p.Name)
	off += MaxNameLen
	putString(buf[off:off+MaxDescLen], p.Description)
	off += MaxDescLen
	count := len(p.ParticipantUIDs)
	if count > MaxParticipants {
		count = MaxParticipants
	}
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(count))
	off += 4
	for i := 0; i < count; i++ {
		binary.BigEndian.PutUint32(buf[off+i*4:off+i*4+4], p.ParticipantUIDs[i])
	}
	return buf
}

func DecodeCreateConvPayload(b []byte) (*CreateConvPayload, error) {
	if len(b) != createConvFixedSize {
		return nil, errors.New("wire: CreateConvPayload: want %d bytes, got %d", createConvFixedSize, len(b))
	}
	p := &CreateConvPayload{Type: ConvType(b[0])}
	off := 1
	p.Name = getString(b[off : off+MaxNameLen])
	off += MaxNameLen
	p.Description = getString(b[off : off+MaxDescLen])
	off += MaxDescLen
	count := binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	if count > MaxParticipants {
		return nil, errors.New("wire: CreateConvPayload: participants_count %d exceeds max %d", count, MaxParticipants)
	}
	p.ParticipantUIDs = make([]uint32, count)
	for i := uint32(0); i < count; i++ {
		p.ParticipantUIDs[i] = binary.BigEndian.Uint32(b[off+int(i)*4 : off+int(i)*4+4])
	}
	return p, nil
}

// ConversationSummary describes one row of a RESP_CONVERSATIONS list.
type ConversationSummary struct {
	ConvID       uint32
	Type         ConvType
	Name         string
	Description  string
	UnreadCount  uint32
	MyRole       Role
}

const conversationSummarySize = 4 + 1 + MaxNameLen + MaxDescLen + 4 + 1

func (p *ConversationSummary) Encode() []byte {
	buf := make([]byte, conversationSummarySize)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	buf[4] = byte(p.Type)
	off := 5
	putString(buf[off:off+MaxNameLen], p.Name)
	off += MaxNameLen
	putString(buf[off:off+MaxDescLen], p.Description)
	off += MaxDescLen
	binary.BigEndian.PutUint32(buf[off:off+4], p.UnreadCount)
	off += 4
	buf[off] = byte(p.MyRole)
	return buf
}

func DecodeConversationSummary(b []byte) (*ConversationSummary, error) {
	if len(b) != conversationSummarySize {
		return nil, errors.New("wire: ConversationSummary: want %d bytes, got %d", conversationSummarySize, len(b))
	}
	p := &ConversationSummary{
		ConvID: binary.BigEndian.Uint32(b[0:4]),
		Type:   ConvType(b[4]),
	}
	off := 5
	p.Name = getString(b[off : off+MaxNameLen])
	off += MaxNameLen
	p.Description = getString(b[off : off+MaxDescLen])
	off += MaxDescLen
	p.UnreadCount = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	p.MyRole = Role(b[off])
	return p, nil
}

func EncodeConversationSummaries(list []ConversationSummary) []byte {
	buf := make([]byte, 0, len(list)*conversationSummarySize)
	for i := range list {
		buf = append(buf, list[i].Encode()...)
	}
	return buf
}

func DecodeConversationSummaries(b []byte) ([]ConversationSummary, error) {
	if len(b)%conversationSummarySize != 0 {
		return nil, errors.New("wire: ConversationSummary list: length %d not a multiple of %d", len(b), conversationSummarySize)
	}
	n := len(b) / conversationSummarySize
	out := make([]ConversationSummary, n)
	for i := 0; i < n; i++ {
		cs, err := DecodeConversationSummary(b[i*conversationSummarySize : (i+1)*conversationSummarySize])
		if err != nil {
			return nil, err
		}
		out[i] = *cs
	}
	return out, nil
}

// SendMessagePayload is the MSG_SEND_TEXT request body.
type SendMessagePayload struct {
	ConvID uint32
	Text   string
}

func (p *SendMessagePayload) Encode() []byte {
	buf := make([]byte, 4+MaxTextLen)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	putString(buf[4:], p.Text)
	return buf
}

func DecodeSendMessagePayload(b []byte) (*SendMessagePayload, error) {
	want := 4 + MaxTextLen
	if len(b) != want {
		return nil, errors.New("wire: SendMessagePayload: want %d bytes, got %d", want, len(b))
	}
	return &SendMessagePayload{
		ConvID: binary.BigEndian.Uint32(b[0:4]),
		Text:   getString(b[4:]),
	}, nil
}

// RoutedMessagePayload is the MSG_RTE_TEXT fan-out body delivered to
// online participants.
type RoutedMessagePayload struct {
	ConvID         uint32
	SenderUID      uint32
	SenderUsername string
	Text           string
}

const routedMessageSize = 4 + 4 + MaxNameLen + MaxTextLen

func (p *RoutedMessagePayload) Encode() []byte {
	buf := make([]byte, routedMessageSize)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	binary.BigEndian.PutUint32(buf[4:8], p.SenderUID)
	off := 8
	putString(buf[off:off+MaxNameLen], p.SenderUsername)
	off += MaxNameLen
	putString(buf[off:], p.Text)
	return buf
}

func DecodeRoutedMessagePayload(b []byte) (*RoutedMessagePayload, error) {
	if len(b) != routedMessageSize {
		return nil, errors.New("wire: RoutedMessagePayload: want %d bytes, got %d", routedMessageSize, len(b))
	}
	p := &RoutedMessagePayload{
		ConvID:    binary.BigEndian.Uint32(b[0:4]),
		SenderUID: binary.BigEndian.Uint32(b[4:8]),
	}
	off := 8
	p.SenderUsername = getString(b[off : off+MaxNameLen])
	off += MaxNameLen
	p.Text = getString(b[off:])
	return p, nil
}

// RequestHistoryPayload is the MSG_REQ_HISTORY request body.
type RequestHistoryPayload struct {
	ConvID uint32
}

func (p *RequestHistoryPayload) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.ConvID)
	return buf
}

func DecodeRequestHistoryPayload(b []byte) (*RequestHistoryPayload, error) {
	if len(b) != 4 {
		return nil, errors.New("wire: RequestHistoryPayload: want 4 bytes, got %d", len(b))
	}
	return &RequestHistoryPayload{ConvID: binary.BigEndian.Uint32(b)}, nil
}

// UpdateGroupPayload is the MSG_UPDATE_GROUP request body.
type UpdateGroupPayload struct {
	ConvID  uint32
	NewName string
	NewDesc string
}

const updateGroupSize = 4 + MaxNameLen + MaxDescLen

func (p *UpdateGroupPayload) Encode() []byte {
	buf := make([]byte, updateGroupSize)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	off := 4
	putString(buf[off:off+MaxNameLen], p.NewName)
	off += MaxNameLen
	putString(buf[off:], p.NewDesc)
	return buf
}

func DecodeUpdateGroupPayload(b []byte) (*UpdateGroupPayload, error) {
	if len(b) != updateGroupSize {
		return nil, errors.New("wire: UpdateGroupPayload: want %d bytes, got %d", updateGroupSize, len(b))
	}
	p := &UpdateGroupPayload{ConvID: binary.BigEndian.Uint32(b[0:4])}
	off := 4
	p.NewName = getString(b[off : off+MaxNameLen])
	off += MaxNameLen
	p.NewDesc = getString(b[off:])
	return p, nil
}

// AddMemberPayload is the MSG_ADD_MEMBER request body.
type AddMemberPayload struct {
	ConvID           uint32
	TargetFriendCode string
}

const addMemberSize = 4 + FriendCodeLen

func (p *AddMemberPayload) Encode() []byte {
	buf := make([]byte, addMemberSize)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	putString(buf[4:], p.TargetFriendCode)
	return buf
}

func DecodeAddMemberPayload(b []byte) (*AddMemberPayload, error) {
	if len(b) != addMemberSize {
		return nil, errors.New("wire: AddMemberPayload: want %d bytes, got %d", addMemberSize, len(b))
	}
	return &AddMemberPayload{
		ConvID:           binary.BigEndian.Uint32(b[0:4]),
		TargetFriendCode: getString(b[4:]),
	}, nil
}

// ReqMembersPayload is the MSG_REQ_MEMBERS request body.
type ReqMembersPayload struct {
	ConvID uint32
}

func (p *ReqMembersPayload) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.ConvID)
	return buf
}

func DecodeReqMembersPayload(b []byte) (*ReqMembersPayload, error) {
	if len(b) != 4 {
		return nil, errors.New("wire: ReqMembersPayload: want 4 bytes, got %d", len(b))
	}
	return &ReqMembersPayload{ConvID: binary.BigEndian.Uint32(b)}, nil
}

// GroupMemberSummary describes one row of a RESP_MEMBERS list.
type GroupMemberSummary struct {
	UID      uint32
	Username string
	Role     Role
}

const groupMemberSummarySize = 4 + MaxNameLen + 1

func (p *GroupMemberSummary) Encode() []byte {
	buf := make([]byte, groupMemberSummarySize)
	binary.BigEndian.PutUint32(buf[0:4], p.UID)
	putString(buf[4:4+MaxNameLen], p.Username)
	buf[4+MaxNameLen] = byte(p.Role)
	return buf
}

func DecodeGroupMemberSummary(b []byte) (*GroupMemberSummary, error) {
	if len(b) != groupMemberSummarySize {
		return nil, errors.New("wire: GroupMemberSummary: want %d bytes, got %d", groupMemberSummarySize, len(b))
	}
	return &GroupMemberSummary{
		UID:      binary.BigEndian.Uint32(b[0:4]),
		Username: getString(b[4 : 4+MaxNameLen]),
		Role:     Role(b[4+MaxNameLen]),
	}, nil
}

func EncodeGroupMemberSummaries(list []GroupMemberSummary) []byte {
	buf := make([]byte, 0, len(list)*groupMemberSummarySize)
	for i := range list {
		buf = append(buf, list[i].Encode()...)
	}
	return buf
}

func DecodeGroupMemberSummaries(b []byte) ([]GroupMemberSummary, error) {
	if len(b)%groupMemberSummarySize != 0 {
		return nil, errors.New("wire: GroupMemberSummary list: length %d not a multiple of %d", len(b), groupMemberSummarySize)
	}
	n := len(b) / groupMemberSummarySize
	out := make([]GroupMemberSummary, n)
	for i := 0; i < n; i++ {
		gm, err := DecodeGroupMemberSummary(b[i*groupMemberSummarySize : (i+1)*groupMemberSummarySize])
		if err != nil {
			return nil, err
		}
		out[i] = *gm
	}
	return out, nil
}

// KickMemberPayload is the MSG_KICK_MEMBER request body.
type KickMemberPayload struct {
	ConvID    uint32
	TargetUID uint32
}

func (p *KickMemberPayload) Encode() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], p.ConvID)
	binary.BigEndian.PutUint32(buf[4:8], p.TargetUID)
	return buf
}

func DecodeKickMemberPayload(b []byte) (*KickMemberPayload, error) {
	if len(b) != 8 {
		return nil, errors.New("wire: KickMemberPayload: want 8 bytes, got %d", len(b))
	}
	return &KickMemberPayload{
		ConvID:    binary.BigEndian.Uint32(b[0:4]),
		TargetUID: binary.BigEndian.Uint32(b[4:8]),
	}, nil
}

// DeleteGroupPayload is the MSG_DELETE_GROUP request body.
type DeleteGroupPayload struct {
	ConvID uint32
}

func (p *DeleteGroupPayload) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, p.ConvID)
	return buf
}

func DecodeDeleteGroupPayload(b []byte) (*DeleteGroupPayload, error) {
	if len(b) != 4 {
		return nil, errors.New("wire: DeleteGroupPayload: want 4 bytes, got %d", len(b))
	}
	return &DeleteGroupPayload{ConvID: binary.BigEndian.Uint32(b)}, nil
}
