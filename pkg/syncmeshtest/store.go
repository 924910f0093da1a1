package syncmeshtest

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"

	"github.com/yndnr/syncmesh-go/internal/transport"
	"github.com/yndnr/syncmesh-go/pkg/cmap"
	"github.com/yndnr/syncmesh-go/pkg/datatype"
	"github.com/yndnr/syncmesh-go/pkg/token"
)

// Store is an in-memory SyncMesh replica. Each present set element and
// each flag enable carries a unique tag; a fetch mints a context token
// recording the tags visible at that moment, and a remove deletes only
// the tags its context observed. State written after the fetch therefore
// survives the remove, which is the store's add-wins resolution.
//
// Store is safe for concurrent use.
type Store struct {
	keys *cmap.Map[string, *entry]

	// clock stamps register assignments. A logical clock keeps
	// last-write-wins exact even for back-to-back updates.
	clock atomic.Int64

	offline atomic.Bool
}

// entry guards one stored datatype.
type entry struct {
	mu sync.Mutex
	n  *node
}

// node is the state of one datatype. The field matching typeName is the
// live one.
type node struct {
	typeName string

	set      map[string]tagSet
	counter  int64
	register registerValue
	flag     tagSet
	members  map[string]*node
}

type tagSet map[string]struct{}

type registerValue struct {
	value string
	stamp int64
}

func newNode(typeName string) *node {
	n := &node{typeName: typeName}
	switch typeName {
	case datatype.TypeNameSet:
		n.set = make(map[string]tagSet)
	case datatype.TypeNameFlag:
		n.flag = make(tagSet)
	case datatype.TypeNameMap:
		n.members = make(map[string]*node)
	}
	return n
}

func newTag() string {
	return ulid.Make().String()
}

// NewStore creates an empty replica.
func NewStore() *Store {
	return &Store{keys: cmap.New[string, *entry]()}
}

// SetOffline makes every operation fail with ErrUnavailable until the
// store is brought back, for exercising cache fallback and the journal.
func (s *Store) SetOffline(offline bool) {
	s.offline.Store(offline)
}

// Len returns the number of stored datatypes.
func (s *Store) Len() int {
	return s.keys.Count()
}

// Fetch reads a snapshot and mints the context token that observed it.
func (s *Store) Fetch(_ context.Context, req *transport.FetchRequest) (*transport.Snapshot, error) {
	if s.offline.Load() {
		return nil, datatype.ErrUnavailable
	}

	e, ok := s.keys.Get(storeKey(req.BucketType, req.Bucket, req.Key))
	if !ok {
		return nil, datatype.ErrKeyNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.n), nil
}

// Update applies a delta. The op payload arrives either typed from an
// in-process client or raw from the HTTP server; both are applied off
// their JSON form, the same bytes the wire carries.
func (s *Store) Update(_ context.Context, req *transport.UpdateRequest) (*transport.Snapshot, error) {
	if s.offline.Load() {
		return nil, datatype.ErrUnavailable
	}

	// Only registry types exist at the top level; flags and registers
	// live inside maps.
	if _, err := datatype.New(req.TypeName); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(req.Op)
	if err != nil {
		return nil, datatype.ErrInvalidArgument.WithCause(err)
	}
	if len(payload) == 0 || string(payload) == "null" {
		return nil, datatype.ErrInvalidArgument.WithDetails("operation is required")
	}

	obs, hasCtx, err := parseContext(req.Context)
	if err != nil {
		return nil, err
	}

	key := storeKey(req.BucketType, req.Bucket, req.Key)
	e, created := s.entryFor(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.n == nil {
		e.n = newNode(req.TypeName)
	} else if e.n.typeName != req.TypeName {
		return nil, datatype.ErrUnexpectedDatatype.WithDetails(
			req.Key + " holds a " + e.n.typeName + ", not a " + req.TypeName,
		)
	}

	if err := s.apply(e.n, payload, obs, hasCtx); err != nil {
		if created {
			s.keys.Delete(key)
		}
		return nil, err
	}

	if !req.ReturnBody {
		return nil, nil
	}
	return snapshot(e.n), nil
}

// Delete removes a datatype. Deleting a missing key is a no-op.
func (s *Store) Delete(_ context.Context, req *transport.DeleteRequest) error {
	if s.offline.Load() {
		return datatype.ErrUnavailable
	}
	s.keys.Delete(storeKey(req.BucketType, req.Bucket, req.Key))
	return nil
}

// Ping reports availability.
func (s *Store) Ping(context.Context) error {
	if s.offline.Load() {
		return datatype.ErrUnavailable
	}
	return nil
}

// Close implements the transport interface; the replica holds no
// resources beyond memory.
func (s *Store) Close() error {
	return nil
}

func (s *Store) entryFor(key string) (*entry, bool) {
	if e, ok := s.keys.Get(key); ok {
		return e, false
	}
	e, loaded := s.keys.GetOrSet(key, &entry{})
	return e, !loaded
}

func storeKey(bucketType, bucket, key string) string {
	return bucketType + "/" + bucket + "/" + key
}

// ----- op application -----

// apply dispatches a raw op payload against the node's type. The
// observation carries the tags the caller's context saw; hasCtx
// distinguishes "no context" from "context that observed nothing".
func (s *Store) apply(n *node, payload []byte, obs *observation, hasCtx bool) error {
	switch n.typeName {
	case datatype.TypeNameSet:
		return applySet(n, payload, obs, hasCtx)
	case datatype.TypeNameCounter:
		return applyCounter(n, payload)
	case datatype.TypeNameRegister:
		return s.applyRegister(n, payload)
	case datatype.TypeNameFlag:
		return applyFlag(n, payload, obs, hasCtx)
	case datatype.TypeNameMap:
		return s.applyMap(n, payload, obs, hasCtx)
	default:
		return datatype.ErrUnknownDatatype.WithDetails(n.typeName)
	}
}

func applySet(n *node, payload []byte, obs *observation, hasCtx bool) error {
	var op struct {
		Adds    []string `json:"adds"`
		Removes []string `json:"removes"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return datatype.ErrInvalidArgument.WithCause(err)
	}
	if len(op.Removes) > 0 && !hasCtx {
		return datatype.ErrContextRequired
	}

	// Every add mints a fresh tag, also for elements already present.
	// The new tag is what keeps a re-added element alive through a
	// remove staged against an older fetch.
	for _, element := range op.Adds {
		tags, ok := n.set[element]
		if !ok {
			tags = make(tagSet)
			n.set[element] = tags
		}
		tags[newTag()] = struct{}{}
	}

	for _, element := range op.Removes {
		tags, ok := n.set[element]
		if !ok {
			continue
		}
		for tag := range obs.elementTags(element) {
			delete(tags, tag)
		}
		if len(tags) == 0 {
			delete(n.set, element)
		}
	}
	return nil
}

func applyCounter(n *node, payload []byte) error {
	var op struct {
		Increment int64 `json:"increment"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return datatype.ErrInvalidArgument.WithCause(err)
	}
	n.counter += op.Increment
	return nil
}

func (s *Store) applyRegister(n *node, payload []byte) error {
	var op struct {
		Assign string `json:"assign"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return datatype.ErrInvalidArgument.WithCause(err)
	}

	stamp := s.clock.Add(1)
	if stamp > n.register.stamp {
		n.register = registerValue{value: op.Assign, stamp: stamp}
	}
	return nil
}

func applyFlag(n *node, payload []byte, obs *observation, hasCtx bool) error {
	var op struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return datatype.ErrInvalidArgument.WithCause(err)
	}

	if op.Enabled {
		n.flag[newTag()] = struct{}{}
		return nil
	}

	// A disable cancels only observed enables; a concurrent enable
	// survives and the flag stays on.
	if !hasCtx {
		return datatype.ErrContextRequired
	}
	for tag := range obs.enableTags() {
		delete(n.flag, tag)
	}
	return nil
}

func (s *Store) applyMap(n *node, payload []byte, obs *observation, hasCtx bool) error {
	var op struct {
		Updates map[string]json.RawMessage `json:"updates"`
		Removes []string                   `json:"removes"`
	}
	if err := json.Unmarshal(payload, &op); err != nil {
		return datatype.ErrInvalidArgument.WithCause(err)
	}
	if len(op.Removes) > 0 && !hasCtx {
		return datatype.ErrContextRequired
	}

	for _, wireKey := range op.Removes {
		member, ok := n.members[wireKey]
		if !ok {
			continue
		}
		if removeObserved(member, obs.member(wireKey)) {
			delete(n.members, wireKey)
		}
	}

	// Deterministic order keeps register LWW stamps reproducible when
	// one delta assigns several registers.
	for _, wireKey := range sortedKeys(op.Updates) {
		memberType, err := splitMemberKey(wireKey)
		if err != nil {
			return err
		}
		member, ok := n.members[wireKey]
		if !ok {
			member = newNode(memberType)
			n.members[wireKey] = member
		}
		if err := s.apply(member, op.Updates[wireKey], obs.member(wireKey), hasCtx); err != nil {
			return err
		}
	}
	return nil
}

// removeObserved deletes the member state the observation saw and reports
// whether the member is now empty and should be dropped. Counters and
// registers carry no tags, so an observed remove always drops them.
func removeObserved(n *node, obs *observation) bool {
	switch n.typeName {
	case datatype.TypeNameSet:
		for element, tags := range n.set {
			for tag := range obs.elementTags(element) {
				delete(tags, tag)
			}
			if len(tags) == 0 {
				delete(n.set, element)
			}
		}
		return len(n.set) == 0
	case datatype.TypeNameFlag:
		for tag := range obs.enableTags() {
			delete(n.flag, tag)
		}
		return len(n.flag) == 0
	case datatype.TypeNameMap:
		for wireKey, member := range n.members {
			if removeObserved(member, obs.member(wireKey)) {
				delete(n.members, wireKey)
			}
		}
		return len(n.members) == 0
	default:
		return true
	}
}

// splitMemberKey parses a map wire key ("name_type", split on the last
// underscore) and returns the member type.
func splitMemberKey(wireKey string) (string, error) {
	i := strings.LastIndex(wireKey, "_")
	if i <= 0 || i == len(wireKey)-1 {
		return "", datatype.ErrInvalidArgument.WithDetails("malformed map key: " + wireKey)
	}
	memberType := wireKey[i+1:]
	switch memberType {
	case datatype.TypeNameCounter, datatype.TypeNameSet, datatype.TypeNameMap,
		datatype.TypeNameFlag, datatype.TypeNameRegister:
		return memberType, nil
	default:
		return "", datatype.ErrInvalidArgument.WithDetails("unknown member type in map key: " + wireKey)
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ----- snapshots and observations -----

// observation is the decoded payload of a context token: the tags a
// fetch made visible, in the shape of the observed node. Methods are
// nil-safe so "no context" reads as "observed nothing".
type observation struct {
	Elements map[string][]string     `json:"elements,omitempty"`
	Enables  []string                `json:"enables,omitempty"`
	Members  map[string]*observation `json:"members,omitempty"`
}

func (o *observation) elementTags(element string) tagSet {
	if o == nil {
		return nil
	}
	tags := make(tagSet, len(o.Elements[element]))
	for _, tag := range o.Elements[element] {
		tags[tag] = struct{}{}
	}
	return tags
}

func (o *observation) enableTags() tagSet {
	if o == nil {
		return nil
	}
	tags := make(tagSet, len(o.Enables))
	for _, tag := range o.Enables {
		tags[tag] = struct{}{}
	}
	return tags
}

func (o *observation) member(wireKey string) *observation {
	if o == nil {
		return nil
	}
	return o.Members[wireKey]
}

func (o *observation) empty() bool {
	return len(o.Elements) == 0 && len(o.Enables) == 0 && len(o.Members) == 0
}

// observe records every tag currently visible in the node.
func observe(n *node) *observation {
	obs := &observation{}
	switch n.typeName {
	case datatype.TypeNameSet:
		if len(n.set) > 0 {
			obs.Elements = make(map[string][]string, len(n.set))
			for element, tags := range n.set {
				obs.Elements[element] = sortedTags(tags)
			}
		}
	case datatype.TypeNameFlag:
		obs.Enables = sortedTags(n.flag)
	case datatype.TypeNameMap:
		for wireKey, member := range n.members {
			child := observe(member)
			if child.empty() {
				continue
			}
			if obs.Members == nil {
				obs.Members = make(map[string]*observation)
			}
			obs.Members[wireKey] = child
		}
	}
	return obs
}

func sortedTags(tags tagSet) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for tag := range tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// parseContext decodes a context token into its observation. An empty
// token means the caller never fetched; a malformed one is rejected
// rather than silently treated as empty.
func parseContext(value string) (*observation, bool, error) {
	if value == "" {
		return nil, false, nil
	}
	payload, ok := token.ParseContextToken(value)
	if !ok {
		return nil, false, datatype.ErrInvalidArgument.WithDetails("malformed context token")
	}
	var obs observation
	if err := json.Unmarshal(payload, &obs); err != nil {
		return nil, false, datatype.ErrInvalidArgument.WithDetails("malformed context token").WithCause(err)
	}
	return &obs, true, nil
}

// snapshot renders the node's value and mints the context that observed
// it. Values use the decoded-JSON shapes the client's Reset accepts.
func snapshot(n *node) *transport.Snapshot {
	payload, _ := json.Marshal(observe(n))
	return &transport.Snapshot{
		Type:    n.typeName,
		Value:   valueOf(n),
		Context: token.NewContextToken(payload),
	}
}

func valueOf(n *node) any {
	switch n.typeName {
	case datatype.TypeNameSet:
		elements := make([]string, 0, len(n.set))
		for element := range n.set {
			elements = append(elements, element)
		}
		sort.Strings(elements)
		return elements
	case datatype.TypeNameCounter:
		return n.counter
	case datatype.TypeNameRegister:
		return n.register.value
	case datatype.TypeNameFlag:
		return len(n.flag) > 0
	case datatype.TypeNameMap:
		members := make(map[string]any, len(n.members))
		for wireKey, member := range n.members {
			members[wireKey] = valueOf(member)
		}
		return members
	default:
		return nil
	}
}
