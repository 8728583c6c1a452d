package main

func init() {
	registerTemplateSet(oracleTemplateSet())
}

const oracleLogColumnsInsert = `            insert into $(defaultSchema)$(prefixName)_data
            (table_name, event_type, trigger_hist_id, row_data, channel_id,
            transaction_id, source_node_id, external_data, create_time)`

const oracleLogColumnsUpdate = `(table_name, event_type, trigger_hist_id, pk_data, row_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)`

const oracleLogColumnsKeys = `(table_name, event_type, trigger_hist_id, pk_data, channel_id, transaction_id, source_node_id, external_data, create_time)`

const oracleLogColumnsDelete = `(table_name, event_type, trigger_hist_id, pk_data, old_data, channel_id, transaction_id, source_node_id, external_data, create_time)`

const oracleLogTail = `$(channelExpression),
            $(txIdExpression),
            $(sourceNodeExpression),
            $(externalSelect),
            $(createTimeExpression)
            );`

func oracleTemplateSet() *TemplateSet {
	return &TemplateSet{
		Dialect:  "oracle",
		Encoding: BinaryBase64,
		Columns: map[Category]ColumnTemplate{
			CategoryText: {
				Primary: `decode($(tableAlias)."$(columnName)", null, $(toLob)'', '"'||replace(replace($(toLob)$(tableAlias)."$(columnName)",'\','\\'),'"','\"')||'"')`,
			},
			CategoryNumeric: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', '"'||$(numberConversion)||'"')`,
			},
			CategoryBoolean: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', '"'||cast($(tableAlias)."$(columnName)" as number(1))||'"')`,
			},
			CategoryDate: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', concat(concat('"',to_char($(tableAlias)."$(columnName)", 'YYYY-MM-DD HH24:MI:SS','NLS_CALENDAR=''GREGORIAN''')),'"'))`,
			},
			CategoryTime: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', concat(concat('"',to_char($(tableAlias)."$(columnName)", 'YYYY-MM-DD HH24:MI:SS','NLS_CALENDAR=''GREGORIAN''')),'"'))`,
			},
			CategoryTimestamp: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', concat(concat('"',to_char($(tableAlias)."$(columnName)", 'YYYY-MM-DD HH24:MI:SS.FF9')),'"'))`,
			},
			CategoryTimestampTZ: {
				Primary: `decode($(tableAlias)."$(columnName)", null, '', concat(concat('"',to_char($(tableAlias)."$(columnName)", 'YYYY-MM-DD HH24:MI:SS.FF9 TZH:TZM')),'"'))`,
			},
			CategoryClob: {
				Primary: `case when $(tableAlias)."$(columnName)" is null then null else '"'||replace(replace($(tableAlias)."$(columnName)",'\','\\'),'"','\"')||'"' end`,
			},
			CategoryBlob: {
				Primary: `decode(dbms_lob.getlength($(tableAlias)."$(columnName)"), null, to_clob(''), '"'||$(prefixName)_blob2clob($(tableAlias)."$(columnName)")||'"')`,
			},
			CategoryBinary: {
				Primary: `decode(dbms_lob.getlength($(tableAlias)."$(columnName)"), null, to_clob(''), '"'||$(prefixName)_blob2clob($(tableAlias)."$(columnName)")||'"')`,
			},
			CategoryGeometry: {
				Primary: `case when $(tableAlias)."$(columnName)" is null then to_clob('') else '"'||replace(replace(SDO_UTIL.TO_WKTGEOMETRY($(tableAlias)."$(columnName)"),'\','\\'),'"','\"')||'"' end`,
			},
			CategoryXML: {
				Primary: `decode(dbms_lob.getlength(extract($(tableAlias)."$(columnName)", '/').getclobval()), null, to_clob(''), '"'||replace(replace(extract($(tableAlias)."$(columnName)", '/').getclobval(),'\','\\'),'"','\"')||'"')`,
			},
		},
		NewAlias:               ":new",
		OldAlias:               ":old",
		ColumnJoin:             "||','||",
		NumberConversion:       `cast($(tableAlias)."$(columnName)" as number$(numberPrecisionSpec))`,
		NumberText:             `to_char($(tableAlias)."$(columnName)", 'TM')`,
		DefaultNumberPrecision: "*,38",
		Expressions: map[string]string{
			"txIdExpression":               "$(defaultSchema)$(prefixName)_transaction_id()",
			"sourceNodeExpression":         "$(prefixName)_pkg.disable_node_id",
			"syncOnIncomingBatchCondition": "$(prefixName)_pkg.disable_trigger is null",
		},
		CreateTime:     "CURRENT_TIMESTAMP",
		CreateTimeZone: "CURRENT_TIMESTAMP AT TIME ZONE '%s'",
		Inline: LobBinding{
			Type:    "varchar2(32767)",
			Changed: "nvl(var_row_data, chr(0)) <> nvl(var_old_data, chr(0))",
		},
		Lob: LobBinding{
			Type:    "clob",
			ToLob:   "to_clob('')||",
			Changed: "dbms_lob.compare(var_row_data, var_old_data) != 0",
		},
		Fallback: LobBinding{
			Type:    "clob",
			ToLob:   "to_clob('')||",
			Changed: "dbms_lob.compare(var_row_data, var_old_data) != 0",
		},
		Structural: map[TriggerKind]string{
			KindInsert: `create or replace trigger $(triggerName)
after insert on $(schemaName)$(tableName)
for each row
begin
    $(custom_before_insert_text)
    if $(syncOnInsertCondition) and $(syncOnIncomingBatchCondition) then
        begin
` + oracleLogColumnsInsert + `
            values(
            '$(targetTableName)',
            'I',
            $(triggerHistoryId),
            $(toLob)$(columns),
            ` + oracleLogTail + `
        exception
        when others then
` + oracleLogColumnsInsert + `
            values(
            '$(targetTableName)',
            'I',
            $(triggerHistoryId),
            $(toLobAlways)$(fallbackColumns),
            ` + oracleLogTail + `
        end;
    end if;
    $(custom_on_insert_text)
end;
`,
			KindInsertReload: `create or replace trigger $(triggerName)
after insert on $(schemaName)$(tableName)
for each row
begin
    $(custom_before_insert_text)
    if $(syncOnInsertCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsKeys + `
            values(
            '$(targetTableName)',
            'R',
            $(triggerHistoryId),
            $(newKeys),
            ` + oracleLogTail + `
        exception
        when others then
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsKeys + `
            values(
            '$(targetTableName)',
            'R',
            $(triggerHistoryId),
            $(toLobAlways)$(newKeys),
            ` + oracleLogTail + `
        end;
    end if;
    $(custom_on_insert_text)
end;
`,
			KindUpdate: `create or replace trigger $(triggerName) after update on $(schemaName)$(tableName)
for each row
begin
    $(custom_before_update_text)
    if $(syncOnUpdateCondition) and $(syncOnIncomingBatchCondition) then
        declare
            var_row_data $(lobType);
            var_old_data $(lobType);
        begin
            select $(toLob)$(columns) into var_row_data from dual;
            select $(toLob)$(oldColumns) into var_old_data from dual;
            if $(dataHasChangedCondition) then
                insert into $(defaultSchema)$(prefixName)_data
                ` + oracleLogColumnsUpdate + `
                values(
                '$(targetTableName)',
                'U',
                $(triggerHistoryId),
                $(oldKeys),
                var_row_data,
                var_old_data,
                ` + oracleLogTail + `
            end if;
        exception
        when others then
            declare
                var_row_data $(fallbackLobType);
                var_old_data $(fallbackLobType);
            begin
                select $(toLobAlways)$(fallbackColumns) into var_row_data from dual;
                select $(toLobAlways)$(fallbackOldColumns) into var_old_data from dual;
                if $(fallbackDataHasChangedCondition) then
                    insert into $(defaultSchema)$(prefixName)_data
                    ` + oracleLogColumnsUpdate + `
                    values(
                    '$(targetTableName)',
                    'U',
                    $(triggerHistoryId),
                    $(oldKeys),
                    var_row_data,
                    var_old_data,
                    ` + oracleLogTail + `
                end if;
            end;
        end;
    end if;
    $(custom_on_update_text)
end;
`,
			KindUpdateReload: `create or replace trigger $(triggerName) after update on $(schemaName)$(tableName)
for each row
begin
    $(custom_before_update_text)
    if $(syncOnUpdateCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsKeys + `
            values(
            '$(targetTableName)',
            'R',
            $(triggerHistoryId),
            $(oldKeys),
            ` + oracleLogTail + `
        exception
        when others then
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsKeys + `
            values(
            '$(targetTableName)',
            'R',
            $(triggerHistoryId),
            $(toLobAlways)$(oldKeys),
            ` + oracleLogTail + `
        end;
    end if;
    $(custom_on_update_text)
end;
`,
			KindDelete: `create or replace trigger $(triggerName) after delete on $(schemaName)$(tableName)
for each row
begin
    $(custom_before_delete_text)
    if $(syncOnDeleteCondition) and $(syncOnIncomingBatchCondition) then
        begin
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsDelete + `
            values(
            '$(targetTableName)',
            'D',
            $(triggerHistoryId),
            $(oldKeys),
            $(toLob)$(oldColumns),
            ` + oracleLogTail + `
        exception
        when others then
            insert into $(defaultSchema)$(prefixName)_data
            ` + oracleLogColumnsDelete + `
            values(
            '$(targetTableName)',
            'D',
            $(triggerHistoryId),
            $(oldKeys),
            $(toLobAlways)$(fallbackOldColumns),
            ` + oracleLogTail + `
        end;
    end if;
    $(custom_on_delete_text)
end;
`,
			KindInitialLoad: `select $(queryHint) $(toLob)$(columns) from $(schemaName)$(tableName) t where $(whereClause)`,
		},
	}
}
